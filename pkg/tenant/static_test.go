package tenant_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

const registryYAML = `
tenants:
  - id: 10000000-0000-0000-0000-000000000001
    slug: Acme
    name: Acme Inc
    primary_domain: acme.io
    features:
      custom_domain: true
      subdomain: true
    domains:
      - host: acme.io
      - host: eng.acme.io
        org: engineering
    database:
      ciphertext: c2VjcmV0
      key_salt: AAECAwQFBgcICQoLDA0ODxAREhMUFRYXGBkaGxwdHh8=
    orgs:
      - id: 10000000-0000-0000-0000-0000000000a1
        slug: main
        schema_name: acme_main
        is_default: true
      - id: 10000000-0000-0000-0000-0000000000a2
        slug: engineering
        schema_name: acme_eng
        status: suspended
`

func TestParseStaticRegistry(t *testing.T) {
	t.Parallel()

	reg, err := tenant.ParseStaticRegistry(strings.NewReader(registryYAML))
	require.NoError(t, err)
	ctx := context.Background()

	tn, err := reg.GetTenantBySlug(ctx, "ACME")
	require.NoError(t, err)
	assert.Equal(t, "acme", tn.Slug)
	assert.Equal(t, tenant.StatusActive, tn.Status)
	assert.True(t, tn.Features.CustomDomain)

	def, err := reg.GetDefaultOrg(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme_main", def.SchemaName)
	assert.Equal(t, tn.ID, def.TenantID)

	eng, err := reg.GetOrgBySlug(ctx, tn.ID, "engineering")
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusSuspended, eng.Status)

	_, o, err := reg.GetTenantByDomain(ctx, "acme.io")
	require.NoError(t, err)
	assert.Equal(t, def.ID, o.ID)

	_, o, err = reg.GetTenantByDomain(ctx, "ENG.acme.io")
	require.NoError(t, err)
	assert.Equal(t, eng.ID, o.ID)

	cfg, err := reg.GetTenantDatabaseConfig(ctx, tn.ID)
	require.NoError(t, err)
	assert.Equal(t, "c2VjcmV0", cfg.Ciphertext)
	assert.Len(t, cfg.KeySalt, 32)
}

func TestParseStaticRegistry_Errors(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"bad tenant id":  "tenants:\n  - id: nope\n    slug: a\n",
		"empty slug":     "tenants:\n  - id: " + uuid.NewString() + "\n",
		"unknown org":    "tenants:\n  - id: " + uuid.NewString() + "\n    slug: a\n    domains:\n      - host: a.io\n        org: ghost\n",
		"malformed yaml": "tenants: [",
		"bad key salt":   "tenants:\n  - id: " + uuid.NewString() + "\n    slug: a\n    database:\n      key_salt: '***'\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := tenant.ParseStaticRegistry(strings.NewReader(doc))
			assert.ErrorIs(t, err, tenant.ErrInvalidStaticRegistry)
		})
	}
}

func TestLoadStaticRegistry(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tenants.yaml")
	require.NoError(t, os.WriteFile(path, []byte(registryYAML), 0o600))

	reg, err := tenant.LoadStaticRegistry(path)
	require.NoError(t, err)
	_, err = reg.GetTenant(context.Background(), uuid.MustParse("10000000-0000-0000-0000-000000000001"))
	assert.NoError(t, err)

	_, err = tenant.LoadStaticRegistry(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, tenant.ErrInvalidStaticRegistry)
}

func TestStaticRegistry_NotFound(t *testing.T) {
	t.Parallel()

	reg := newFixtureRegistry()
	ctx := context.Background()

	_, err := reg.GetTenant(ctx, uuid.New())
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	_, err = reg.GetOrg(ctx, uuid.New())
	assert.ErrorIs(t, err, tenant.ErrOrgNotFound)
	_, _, err = reg.GetTenantByDomain(ctx, "nowhere.io")
	assert.ErrorIs(t, err, tenant.ErrDomainNotFound)
	_, err = reg.GetTenantDatabaseConfig(ctx, acmeID)
	assert.ErrorIs(t, err, tenant.ErrDatabaseConfigNotFound)

	reg.RemoveTenant(acmeID)
	_, err = reg.GetTenantBySlug(ctx, "acme")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	_, err = reg.GetOrg(ctx, acmeMainID)
	assert.ErrorIs(t, err, tenant.ErrOrgNotFound)
}
