package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
)

// EncryptString encrypts plaintext with the compound key and returns base64 ciphertext.
func EncryptString(masterKey, tenantKey []byte, plaintext string) (string, error) {
	ciphertext, err := EncryptBytes(masterKey, tenantKey, []byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString.
func DecryptString(masterKey, tenantKey []byte, ciphertext string) (string, error) {
	plaintext, err := decryptEncoded(masterKey, tenantKey, ciphertext)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptJSON marshals v and encrypts it. The result is base64 encoded.
func EncryptJSON(masterKey, tenantKey []byte, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	defer clearBytes(data)

	ciphertext, err := EncryptBytes(masterKey, tenantKey, data)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptJSON decrypts a base64 ciphertext produced by EncryptJSON into dst.
func DecryptJSON(masterKey, tenantKey []byte, ciphertext string, dst any) error {
	plaintext, err := decryptEncoded(masterKey, tenantKey, ciphertext)
	if err != nil {
		return err
	}
	defer clearBytes(plaintext)

	if err := json.Unmarshal(plaintext, dst); err != nil {
		return errors.Join(ErrDecryptionFailed, err)
	}
	return nil
}

// EncryptBytes encrypts data with AES-256-GCM.
// Output layout: nonce || ciphertext || tag.
func EncryptBytes(masterKey, tenantKey []byte, data []byte) ([]byte, error) {
	aead, err := newAEAD(masterKey, tenantKey)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return aead.Seal(nonce, nonce, data, nil), nil
}

// DecryptBytes reverses EncryptBytes.
func DecryptBytes(masterKey, tenantKey []byte, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(masterKey, tenantKey)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}

	nonceSize := aead.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, ErrInvalidCiphertext
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}

func decryptEncoded(masterKey, tenantKey []byte, ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, errors.Join(ErrInvalidCiphertext, err)
	}
	return DecryptBytes(masterKey, tenantKey, raw)
}

func newAEAD(masterKey, tenantKey []byte) (cipher.AEAD, error) {
	if err := ValidateKeys(masterKey, tenantKey); err != nil {
		return nil, err
	}

	key, err := deriveKey(masterKey, tenantKey)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
