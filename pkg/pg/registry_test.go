package pg_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantgate/pkg/pg"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

// fakeDB answers queries by matching the FROM table and records calls.
type fakeDB struct {
	mu      sync.Mutex
	rows    map[string]fakeRow
	queries []string
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.queries = append(db.queries, sql)
	for key, row := range db.rows {
		if strings.Contains(sql, key) {
			return row
		}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

var (
	tenantID = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	orgID    = uuid.MustParse("10000000-0000-0000-0000-0000000000a1")
)

func tenantRow() fakeRow {
	return fakeRow{values: []any{tenantID, "acme", "Acme", "active", "acme.io", true, false}}
}

func orgRow(isDefault bool) fakeRow {
	return fakeRow{values: []any{orgID, tenantID, "main", "acme_main", "active", isDefault}}
}

func TestRegistry_GetTenant(t *testing.T) {
	t.Parallel()

	db := &fakeDB{rows: map[string]fakeRow{"FROM tenants": tenantRow()}}
	reg := pg.NewRegistry(db)

	got, err := reg.GetTenant(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Equal(t, &tenant.Tenant{
		ID: tenantID, Slug: "acme", Name: "Acme", Status: "active",
		PrimaryDomain: "acme.io",
		Features:      tenant.Features{CustomDomain: true},
	}, got)

	got, err = reg.GetTenantBySlug(context.Background(), "ACME")
	require.NoError(t, err)
	assert.Equal(t, tenantID, got.ID)
}

func TestRegistry_NotFoundMapping(t *testing.T) {
	t.Parallel()

	reg := pg.NewRegistry(&fakeDB{})
	ctx := context.Background()

	_, err := reg.GetTenant(ctx, tenantID)
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	_, err = reg.GetTenantBySlug(ctx, "acme")
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
	_, _, err = reg.GetTenantByDomain(ctx, "acme.io")
	assert.ErrorIs(t, err, tenant.ErrDomainNotFound)
	_, err = reg.GetOrg(ctx, orgID)
	assert.ErrorIs(t, err, tenant.ErrOrgNotFound)
	_, err = reg.GetOrgBySlug(ctx, tenantID, "main")
	assert.ErrorIs(t, err, tenant.ErrOrgNotFound)
	_, err = reg.GetDefaultOrg(ctx, tenantID)
	assert.ErrorIs(t, err, tenant.ErrOrgNotFound)
	_, err = reg.GetTenantDatabaseConfig(ctx, tenantID)
	assert.ErrorIs(t, err, tenant.ErrDatabaseConfigNotFound)
}

func TestRegistry_QueryFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	reg := pg.NewRegistry(&fakeDB{rows: map[string]fakeRow{"FROM tenants": {err: boom}}})

	_, err := reg.GetTenant(context.Background(), tenantID)
	assert.ErrorIs(t, err, pg.ErrQueryFailed)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, tenant.ErrTenantNotFound)
}

func TestRegistry_GetTenantByDomain(t *testing.T) {
	t.Parallel()

	t.Run("domain without org uses default org", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{rows: map[string]fakeRow{
			"FROM tenant_domains": {values: []any{tenantID, uuid.NullUUID{}}},
			"FROM tenants":        tenantRow(),
			"is_default":          orgRow(true),
		}}
		reg := pg.NewRegistry(db)

		tn, o, err := reg.GetTenantByDomain(context.Background(), "acme.io")
		require.NoError(t, err)
		assert.Equal(t, tenantID, tn.ID)
		assert.True(t, o.IsDefault)
	})

	t.Run("domain with org", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{rows: map[string]fakeRow{
			"FROM tenant_domains": {values: []any{tenantID, uuid.NullUUID{UUID: orgID, Valid: true}}},
			"FROM tenants":        tenantRow(),
			"FROM orgs WHERE id":  orgRow(false),
		}}
		reg := pg.NewRegistry(db)

		_, o, err := reg.GetTenantByDomain(context.Background(), "acme.io")
		require.NoError(t, err)
		assert.Equal(t, orgID, o.ID)
		assert.Equal(t, "acme_main", o.SchemaName)
	})
}

func TestRegistry_GetTenantDatabaseConfig(t *testing.T) {
	t.Parallel()

	t.Run("own row", func(t *testing.T) {
		t.Parallel()

		db := &fakeDB{rows: map[string]fakeRow{
			"FROM tenant_database_configs": {values: []any{tenantID, "sealed", []byte{1, 2, 3}}},
		}}
		cfg, err := pg.NewRegistry(db).GetTenantDatabaseConfig(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, "sealed", cfg.Ciphertext)
		assert.Equal(t, []byte{1, 2, 3}, cfg.KeySalt)
	})

	t.Run("falls back to shared config", func(t *testing.T) {
		t.Parallel()

		reg := pg.NewRegistry(&fakeDB{}, pg.WithDefaultDatabaseConfig(tenant.DatabaseConfig{
			Ciphertext: "shared",
			KeySalt:    []byte{9},
		}))
		cfg, err := reg.GetTenantDatabaseConfig(context.Background(), tenantID)
		require.NoError(t, err)
		assert.Equal(t, tenantID, cfg.TenantID)
		assert.Equal(t, "shared", cfg.Ciphertext)
	})
}
