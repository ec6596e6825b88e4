package secrets_test

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantgate/pkg/secrets"
)

func mustKey(t *testing.T) []byte {
	t.Helper()
	k, err := secrets.GenerateKey()
	require.NoError(t, err)
	return k
}

func TestEncryptDecryptString(t *testing.T) {
	t.Parallel()

	master, tenantKey := mustKey(t), mustKey(t)

	ct, err := secrets.EncryptString(master, tenantKey, "postgres-password")
	require.NoError(t, err)
	assert.NotContains(t, ct, "postgres-password")

	plain, err := secrets.DecryptString(master, tenantKey, ct)
	require.NoError(t, err)
	assert.Equal(t, "postgres-password", plain)
}

func TestEncryptDecryptJSON(t *testing.T) {
	t.Parallel()

	type creds struct {
		Host     string `json:"host"`
		Password string `json:"password"`
	}

	master, tenantKey := mustKey(t), mustKey(t)

	blob, err := secrets.EncryptJSON(master, tenantKey, creds{Host: "db", Password: "pw"})
	require.NoError(t, err)

	var out creds
	require.NoError(t, secrets.DecryptJSON(master, tenantKey, blob, &out))
	assert.Equal(t, creds{Host: "db", Password: "pw"}, out)
}

func TestDecrypt_WrongTenantKey(t *testing.T) {
	t.Parallel()

	master := mustKey(t)
	ct, err := secrets.EncryptString(master, mustKey(t), "secret")
	require.NoError(t, err)

	_, err = secrets.DecryptString(master, mustKey(t), ct)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestInvalidKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		master    []byte
		tenantKey []byte
		want      error
	}{
		{"short master", make([]byte, 16), make([]byte, 32), secrets.ErrInvalidMasterKey},
		{"short tenant", make([]byte, 32), make([]byte, 8), secrets.ErrInvalidTenantKey},
		{"nil master", nil, make([]byte, 32), secrets.ErrInvalidMasterKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, secrets.ValidateKeys(tt.master, tt.tenantKey), tt.want)

			_, err := secrets.EncryptString(tt.master, tt.tenantKey, "x")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestInvalidCiphertext(t *testing.T) {
	t.Parallel()

	master, tenantKey := mustKey(t), mustKey(t)

	_, err := secrets.DecryptString(master, tenantKey, "not base64!!")
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)

	_, err = secrets.DecryptBytes(master, tenantKey, []byte{1, 2, 3})
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)
}

func TestParseKey(t *testing.T) {
	t.Parallel()

	key := mustKey(t)

	parsed, err := secrets.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	parsed, err = secrets.ParseKey(base64.RawURLEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = secrets.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, secrets.ErrInvalidKeyEncoding)
}
