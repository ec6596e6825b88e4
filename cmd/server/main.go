// Command server runs the tenant gateway: it resolves the tenant of every
// request, scopes a pooled tenant database handle to it and serves the
// tenant API behind that scope.
package main

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"

	"github.com/dmitrymomot/tenantgate/pkg/clientip"
	"github.com/dmitrymomot/tenantgate/pkg/config"
	"github.com/dmitrymomot/tenantgate/pkg/connpool"
	"github.com/dmitrymomot/tenantgate/pkg/cookie"
	"github.com/dmitrymomot/tenantgate/pkg/httpserver"
	"github.com/dmitrymomot/tenantgate/pkg/jwt"
	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/pg"
	"github.com/dmitrymomot/tenantgate/pkg/requestid"
	"github.com/dmitrymomot/tenantgate/pkg/session"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithConfig(cfg.Logger),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			tenant.LoggerExtractor(),
		),
	)
	logger.SetAsDefault(log)

	if err := run(context.Background(), cfg, log); err != nil {
		log.Error("server stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	backend, err := openRegistry(ctx, cfg.Registry, log)
	if err != nil {
		return err
	}

	decrypter, err := connpool.NewSecretsDecrypterFromString(cfg.Pool.MasterKey)
	if err != nil {
		return err
	}

	var factoryCfg pg.FactoryConfig
	if err := config.Load(&factoryCfg); err != nil {
		return err
	}
	factory := pg.NewFactory(
		pg.WithFactoryConfig(factoryCfg),
		pg.WithFactoryLogger(log),
	)

	tel := newTelemetry()

	poolOpts := []connpool.Option{
		connpool.WithConfig(cfg.Pool),
		connpool.WithLogger(log),
		connpool.WithMeter(otel.GetMeterProvider().Meter(connpool.MeterName)),
	}
	fallback, err := fallbackCredentials(cfg.Pool.FallbackDSN, backend.fallbackDSN, log)
	if err != nil {
		return err
	}
	if fallback != nil {
		poolOpts = append(poolOpts, connpool.WithFallbackCredentials(*fallback))
	}

	pool, err := connpool.New(backend.registry, factory, decrypter, poolOpts...)
	if err != nil {
		return err
	}

	tokens, err := jwt.NewFromConfig(cfg.Tokens)
	if err != nil {
		return err
	}

	// Session cookies live on the base domain so that clearing them reaches
	// every tenant subdomain.
	cookieCfg := cfg.Cookie
	if cookieCfg.Domain == "" {
		cookieCfg.Domain = cfg.Tenant.BaseDomain
	}
	sessions := session.NewReader(
		session.NewCompositeTransport(
			session.NewCookieTransport(cookie.NewFromConfig(cookieCfg), cfg.Session.CookieName),
			session.NewHeaderTransport(cfg.Session.HeaderName),
		),
		tokens,
		session.WithTTL(cfg.Tokens.TTL),
		session.WithLogger(log),
	)

	resolver := tenant.NewResolver(backend.registry,
		tenant.WithConfig(cfg.Tenant),
		tenant.WithResolverLogger(log),
	)

	var ips clientip.Extractor
	if cfg.TrustProxy {
		ips.Headers = clientip.DefaultHeaders
	}

	router := newRouter(routerDeps{
		log:        log,
		clientIPs:  ips,
		resolver:   resolver,
		pool:       pool,
		registry:   backend.registry,
		sessions:   sessions,
		checks:     backend.checks,
		telemetry:  tel,
		adminToken: cfg.AdminToken,
	})

	// Closers run in reverse: the pool goes first, then registry backends
	// and the meter provider.
	opts := []httpserver.Option{
		httpserver.WithLogger(log),
		httpserver.WithCloser("telemetry", tel.Shutdown),
	}
	opts = append(opts, backend.closers...)
	opts = append(opts, httpserver.WithCloser("connpool", pool.Close))

	return httpserver.NewFromConfig(cfg.HTTP, opts...).Run(ctx, router)
}

// fallbackCredentials picks the database of the bare base domain pair. An
// explicit DSN must parse; one borrowed from the registry backend is skipped
// with a warning when it is not a URL.
func fallbackCredentials(explicit, derived string, log *slog.Logger) (*tenant.Credentials, error) {
	if explicit != "" {
		creds, err := tenant.ParseDSN(explicit)
		if err != nil {
			return nil, err
		}
		return &creds, nil
	}
	if derived == "" {
		log.Warn("no fallback database configured, the bare base domain needs a registered root tenant")
		return nil, nil
	}
	creds, err := tenant.ParseDSN(derived)
	if err != nil {
		log.Warn("registry connection string is not a URL, fallback database disabled", logger.Error(err))
		return nil, nil
	}
	return &creds, nil
}
