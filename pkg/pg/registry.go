package pg

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

// Querier is the subset of pgxpool.Pool the registry needs.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	tenantColumns = `id, slug, name, status, coalesce(primary_domain, ''), feature_custom_domain, feature_subdomain`
	orgColumns    = `id, tenant_id, slug, schema_name, status, is_default`

	queryTenantByID     = `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	queryTenantBySlug   = `SELECT ` + tenantColumns + ` FROM tenants WHERE lower(slug) = lower($1)`
	queryDomain         = `SELECT tenant_id, org_id FROM tenant_domains WHERE domain = lower($1) AND verified_at IS NOT NULL`
	queryOrgByID        = `SELECT ` + orgColumns + ` FROM orgs WHERE id = $1`
	queryOrgBySlug      = `SELECT ` + orgColumns + ` FROM orgs WHERE tenant_id = $1 AND lower(slug) = lower($2)`
	queryDefaultOrg     = `SELECT ` + orgColumns + ` FROM orgs WHERE tenant_id = $1 AND is_default`
	queryDatabaseConfig = `SELECT tenant_id, ciphertext, key_salt FROM tenant_database_configs WHERE tenant_id = $1`
)

// Registry implements tenant.Registry over the control-plane tables.
type Registry struct {
	db        Querier
	defaultDB *tenant.DatabaseConfig
	logger    *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDefaultDatabaseConfig is returned for tenants without their own
// credentials row, for deployments where most tenants share one cluster.
func WithDefaultDatabaseConfig(cfg tenant.DatabaseConfig) RegistryOption {
	return func(r *Registry) {
		r.defaultDB = &cfg
	}
}

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates a Registry reading through db.
func NewRegistry(db Querier, opts ...RegistryOption) *Registry {
	r := &Registry{db: db, logger: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func scanTenant(row pgx.Row) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Status, &t.PrimaryDomain,
		&t.Features.CustomDomain, &t.Features.Subdomain)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanOrg(row pgx.Row) (*tenant.Org, error) {
	var o tenant.Org
	if err := row.Scan(&o.ID, &o.TenantID, &o.Slug, &o.SchemaName, &o.Status, &o.IsDefault); err != nil {
		return nil, err
	}
	return &o, nil
}

// classify maps no-rows to notFound and wraps everything else.
func classify(err, notFound error) error {
	if IsNotFoundError(err) {
		return notFound
	}
	return errors.Join(ErrQueryFailed, err)
}

func (r *Registry) GetTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx, queryTenantByID, id))
	if err != nil {
		return nil, classify(err, tenant.ErrTenantNotFound)
	}
	return t, nil
}

func (r *Registry) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	t, err := scanTenant(r.db.QueryRow(ctx, queryTenantBySlug, slug))
	if err != nil {
		return nil, classify(err, tenant.ErrTenantNotFound)
	}
	return t, nil
}

// GetTenantByDomain resolves a verified domain. Domains without an org
// point at the tenant's default org.
func (r *Registry) GetTenantByDomain(ctx context.Context, domain string) (*tenant.Tenant, *tenant.Org, error) {
	var (
		tenantID uuid.UUID
		orgID    uuid.NullUUID
	)
	if err := r.db.QueryRow(ctx, queryDomain, domain).Scan(&tenantID, &orgID); err != nil {
		return nil, nil, classify(err, tenant.ErrDomainNotFound)
	}

	t, err := r.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	var o *tenant.Org
	if orgID.Valid {
		o, err = r.GetOrg(ctx, orgID.UUID)
	} else {
		o, err = r.GetDefaultOrg(ctx, tenantID)
	}
	if err != nil {
		return nil, nil, err
	}
	return t, o, nil
}

func (r *Registry) GetOrg(ctx context.Context, id uuid.UUID) (*tenant.Org, error) {
	o, err := scanOrg(r.db.QueryRow(ctx, queryOrgByID, id))
	if err != nil {
		return nil, classify(err, tenant.ErrOrgNotFound)
	}
	return o, nil
}

func (r *Registry) GetOrgBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*tenant.Org, error) {
	o, err := scanOrg(r.db.QueryRow(ctx, queryOrgBySlug, tenantID, slug))
	if err != nil {
		return nil, classify(err, tenant.ErrOrgNotFound)
	}
	return o, nil
}

func (r *Registry) GetDefaultOrg(ctx context.Context, tenantID uuid.UUID) (*tenant.Org, error) {
	o, err := scanOrg(r.db.QueryRow(ctx, queryDefaultOrg, tenantID))
	if err != nil {
		return nil, classify(err, tenant.ErrOrgNotFound)
	}
	return o, nil
}

func (r *Registry) GetTenantDatabaseConfig(ctx context.Context, tenantID uuid.UUID) (*tenant.DatabaseConfig, error) {
	var cfg tenant.DatabaseConfig
	err := r.db.QueryRow(ctx, queryDatabaseConfig, tenantID).Scan(&cfg.TenantID, &cfg.Ciphertext, &cfg.KeySalt)
	switch {
	case err == nil:
		return &cfg, nil
	case IsNotFoundError(err) && r.defaultDB != nil:
		r.logger.DebugContext(ctx, "using default database config",
			logger.Component("pg"),
			logger.TenantID(tenantID),
		)
		def := *r.defaultDB
		def.TenantID = tenantID
		return &def, nil
	default:
		return nil, classify(err, tenant.ErrDatabaseConfigNotFound)
	}
}

var _ tenant.Registry = (*Registry)(nil)
