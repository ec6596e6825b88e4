package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required size for both the master key and a tenant key.
	KeySize = 32

	// hkdfInfo gives derived keys domain separation from other HKDF users.
	hkdfInfo = "tenantgate-db-credentials-v1"
)

// ValidateKeys checks that both keys are KeySize bytes long.
// Both lengths are checked before reporting so the timing does not reveal which one failed.
func ValidateKeys(masterKey, tenantKey []byte) error {
	validMaster := len(masterKey) == KeySize
	validTenant := len(tenantKey) == KeySize

	if !validMaster {
		return ErrInvalidMasterKey
	}
	if !validTenant {
		return ErrInvalidTenantKey
	}
	return nil
}

// deriveKey creates the compound AES key. Callers must clearBytes the result.
func deriveKey(masterKey, tenantKey []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, masterKey, tenantKey, []byte(hkdfInfo))

	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(r, derived); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	return derived, nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateKey creates a new random KeySize key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// ParseKey decodes a base64 (standard or URL alphabet) key and validates its size.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, errors.Join(ErrInvalidKeyEncoding, err)
		}
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKeyEncoding
	}
	return key, nil
}
