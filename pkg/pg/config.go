package pg

import "time"

// Config configures the control-plane connection that backs the registry.
type Config struct {
	ConnectionString  string        `env:"PG_CONN_URL,required"`
	MaxOpenConns      int32         `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"PG_MAX_IDLE_CONNS" envDefault:"2"`
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	RetryAttempts int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"5s"`

	MigrationsTable string `env:"PG_MIGRATIONS_TABLE" envDefault:"registry_migrations"`
}

// FactoryConfig tunes the per-tenant pools built by Factory. The maximum
// connection count comes from the pool width passed to CreateHandle.
type FactoryConfig struct {
	HealthCheckPeriod time.Duration `env:"PG_TENANT_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"PG_TENANT_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	MaxConnLifetime   time.Duration `env:"PG_TENANT_MAX_CONN_LIFETIME" envDefault:"30m"`
	ConnectTimeout    time.Duration `env:"PG_TENANT_CONNECT_TIMEOUT" envDefault:"10s"`
	// SkipPing leaves the first connection lazy instead of verifying it.
	SkipPing bool `env:"PG_TENANT_SKIP_PING" envDefault:"false"`
}
