package connpool

import (
	"context"
	"errors"

	"github.com/dmitrymomot/tenantgate/pkg/secrets"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

// Decrypter turns a stored DatabaseConfig into usable credentials.
type Decrypter interface {
	Decrypt(ctx context.Context, cfg *tenant.DatabaseConfig) (tenant.Credentials, error)
}

// DecrypterFunc adapts a function to Decrypter.
type DecrypterFunc func(ctx context.Context, cfg *tenant.DatabaseConfig) (tenant.Credentials, error)

func (f DecrypterFunc) Decrypt(ctx context.Context, cfg *tenant.DatabaseConfig) (tenant.Credentials, error) {
	return f(ctx, cfg)
}

// SecretsDecrypter decrypts credentials sealed with secrets.EncryptJSON under
// the master key and the tenant's key salt.
type SecretsDecrypter struct {
	masterKey []byte
}

// NewSecretsDecrypter validates masterKey and returns a decrypter.
func NewSecretsDecrypter(masterKey []byte) (*SecretsDecrypter, error) {
	if len(masterKey) != secrets.KeySize {
		return nil, ErrInvalidMasterKey
	}
	key := make([]byte, len(masterKey))
	copy(key, masterKey)
	return &SecretsDecrypter{masterKey: key}, nil
}

// NewSecretsDecrypterFromString parses a base64 master key.
func NewSecretsDecrypterFromString(encoded string) (*SecretsDecrypter, error) {
	key, err := secrets.ParseKey(encoded)
	if err != nil {
		return nil, errors.Join(ErrInvalidMasterKey, err)
	}
	return NewSecretsDecrypter(key)
}

func (d *SecretsDecrypter) Decrypt(_ context.Context, cfg *tenant.DatabaseConfig) (tenant.Credentials, error) {
	var creds tenant.Credentials
	if err := secrets.DecryptJSON(d.masterKey, cfg.KeySalt, cfg.Ciphertext, &creds); err != nil {
		return tenant.Credentials{}, err
	}
	return creds, nil
}

// Seal encrypts creds for storage in a DatabaseConfig.
func (d *SecretsDecrypter) Seal(tenantKey []byte, creds tenant.Credentials) (string, error) {
	return secrets.EncryptJSON(d.masterKey, tenantKey, creds)
}
