package main

import (
	"time"

	"github.com/dmitrymomot/tenantgate/pkg/connpool"
	"github.com/dmitrymomot/tenantgate/pkg/cookie"
	"github.com/dmitrymomot/tenantgate/pkg/httpserver"
	"github.com/dmitrymomot/tenantgate/pkg/jwt"
	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/session"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

// Registry drivers.
const (
	driverPostgres = "postgres"
	driverMongo    = "mongo"
	driverStatic   = "static"
)

// Registry cache backends.
const (
	cacheMemory = "memory"
	cacheRedis  = "redis"
	cacheNone   = "none"
)

type registryConfig struct {
	Driver     string        `env:"REGISTRY_DRIVER" envDefault:"postgres"`
	StaticFile string        `env:"REGISTRY_STATIC_FILE" envDefault:"tenants.yaml"`
	Cache      string        `env:"REGISTRY_CACHE" envDefault:"memory"`
	CacheSize  int           `env:"REGISTRY_CACHE_SIZE" envDefault:"1000"`
	CacheTTL   time.Duration `env:"REGISTRY_CACHE_TTL" envDefault:"5m"`
	// Migrate applies the postgres registry schema on start.
	Migrate bool `env:"REGISTRY_MIGRATE" envDefault:"true"`
}

type appConfig struct {
	Logger   logger.Config
	HTTP     httpserver.Config
	Tenant   tenant.Config
	Pool     connpool.Config
	Registry registryConfig
	Cookie   cookie.Config
	Session  session.Config
	Tokens   jwt.Config
	// AdminToken enables the /internal endpoints when set.
	AdminToken string `env:"ADMIN_TOKEN"`
	// TrustProxy honours client address headers set by a reverse proxy.
	TrustProxy bool `env:"HTTP_TRUST_PROXY" envDefault:"false"`
}
