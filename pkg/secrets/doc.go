// Package secrets encrypts and decrypts tenant database credentials at rest.
//
// A compound 32-byte key is derived from the process-wide master key and a
// per-tenant key (stored next to the ciphertext) with HKDF-SHA-256. The derived
// key drives AES-256-GCM; the random nonce is prepended to the ciphertext so a
// single base64 string carries everything needed for decryption.
//
// Compromise of one tenant key alone is not enough to read any credentials,
// and rotating the master key invalidates every stored blob at once.
//
// # Usage
//
//	master, _ := secrets.ParseKey(os.Getenv("TENANT_MASTER_KEY"))
//	tenantKey, _ := secrets.GenerateKey()
//
//	blob, err := secrets.EncryptJSON(master, tenantKey, creds)
//	...
//	var out Credentials
//	err = secrets.DecryptJSON(master, tenantKey, blob, &out)
//
// # Errors
//
// Key problems surface as ErrInvalidMasterKey / ErrInvalidTenantKey. Any
// authentication failure of the ciphertext is reported as ErrDecryptionFailed.
package secrets
