package secrets

import "errors"

var (
	ErrInvalidMasterKey   = errors.New("invalid master key: must be 32 bytes")
	ErrInvalidTenantKey   = errors.New("invalid tenant key: must be 32 bytes")
	ErrInvalidKeyEncoding = errors.New("invalid key encoding: expected base64 of 32 bytes")

	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrInvalidCiphertext = errors.New("invalid ciphertext format")

	ErrKeyDerivationFailed = errors.New("key derivation failed")
)
