package pg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

var schemaPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]{0,62}$`)

// TenantDB is a pgx pool whose connections default to one org schema.
type TenantDB struct {
	*pgxpool.Pool
	Schema string

	once sync.Once
}

// Close closes the underlying pool. Safe to call more than once.
func (db *TenantDB) Close() {
	db.once.Do(db.Pool.Close)
}

// DBFromContext returns the tenant pool of the active request scope.
func DBFromContext(ctx context.Context) (*TenantDB, error) {
	h, err := tenant.HandleFromContext(ctx)
	if err != nil {
		return nil, errors.Join(ErrNoTenantDB, err)
	}
	db, ok := h.(*TenantDB)
	if !ok {
		return nil, ErrNoTenantDB
	}
	return db, nil
}

// Factory builds TenantDB handles from decrypted credentials.
type Factory struct {
	cfg    FactoryConfig
	logger *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithFactoryConfig sets pool tuning for tenant handles.
func WithFactoryConfig(cfg FactoryConfig) FactoryOption {
	return func(f *Factory) {
		f.cfg = cfg
	}
}

// WithFactoryLogger sets the logger used when a handle fails to connect.
func WithFactoryLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFactory creates a Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{logger: logger.Discard()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// PoolConfig builds the pgxpool configuration for a tenant handle. The
// schema is applied as the search_path startup parameter so every
// connection in the pool is bound to it.
func (f *Factory) PoolConfig(creds tenant.Credentials, schema string, width int) (*pgxpool.Config, error) {
	if !schemaPattern.MatchString(schema) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSchema, schema)
	}

	cfg, err := pgxpool.ParseConfig(creds.DSN())
	if err != nil {
		return nil, errors.Join(ErrFailedToParseDBConfig, err)
	}

	cfg.ConnConfig.RuntimeParams["search_path"] = pgx.Identifier{schema}.Sanitize()
	if width > 0 {
		cfg.MaxConns = int32(width)
	}
	if f.cfg.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = f.cfg.HealthCheckPeriod
	}
	if f.cfg.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = f.cfg.MaxConnIdleTime
	}
	if f.cfg.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = f.cfg.MaxConnLifetime
	}
	if f.cfg.ConnectTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = f.cfg.ConnectTimeout
	}
	return cfg, nil
}

// CreateHandle opens a pool bound to schema and verifies it with a ping.
func (f *Factory) CreateHandle(ctx context.Context, creds tenant.Credentials, schema string, width int) (tenant.Handle, error) {
	cfg, err := f.PoolConfig(creds, schema, width)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.Join(ErrFailedToOpenDBConnection, err)
	}

	if !f.cfg.SkipPing {
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			f.logger.WarnContext(ctx, "tenant database unreachable",
				logger.Component("pg"),
				logger.Schema(schema),
				slog.String("host", creds.Host),
				logger.Error(err),
			)
			return nil, errors.Join(ErrFailedToOpenDBConnection, err)
		}
	}

	return &TenantDB{Pool: pool, Schema: schema}, nil
}
