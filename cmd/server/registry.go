package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/tenantgate/pkg/config"
	"github.com/dmitrymomot/tenantgate/pkg/httpserver"
	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/mongo"
	"github.com/dmitrymomot/tenantgate/pkg/pg"
	"github.com/dmitrymomot/tenantgate/pkg/redis"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

// backend is a registry together with what it needs at shutdown.
type backend struct {
	registry tenant.Registry
	checks   []httpserver.Check
	closers  []httpserver.Option
	// fallbackDSN is the database offered to the unregistered fallback
	// pair when CONNPOOL_FALLBACK_DSN is not set.
	fallbackDSN string
}

func openRegistry(ctx context.Context, cfg registryConfig, log *slog.Logger) (*backend, error) {
	b := &backend{}

	switch cfg.Driver {
	case driverPostgres:
		var pgCfg pg.Config
		if err := config.Load(&pgCfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pgCfg)
		if err != nil {
			return nil, err
		}
		if cfg.Migrate {
			if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		b.registry = pg.NewRegistry(pool, pg.WithRegistryLogger(log))
		b.fallbackDSN = pgCfg.ConnectionString
		b.checks = append(b.checks, httpserver.Check{Name: "postgres", Fn: pg.Healthcheck(pool)})
		b.closers = append(b.closers, httpserver.WithCloser("postgres", func() error {
			pool.Close()
			return nil
		}))

	case driverMongo:
		var mCfg mongo.Config
		if err := config.Load(&mCfg); err != nil {
			return nil, err
		}
		client, err := mongo.New(ctx, mCfg)
		if err != nil {
			return nil, err
		}
		db := client.Database(mCfg.Database)
		if err := mongo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		b.registry = mongo.NewDatabaseRegistry(db, mongo.WithRegistryLogger(log))
		b.checks = append(b.checks, httpserver.Check{Name: "mongo", Fn: mongo.Healthcheck(client)})
		b.closers = append(b.closers, httpserver.WithCloser("mongo", func() error {
			return client.Disconnect(context.Background())
		}))

	case driverStatic:
		reg, err := tenant.LoadStaticRegistry(cfg.StaticFile)
		if err != nil {
			return nil, err
		}
		b.registry = reg

	default:
		return nil, fmt.Errorf("unknown registry driver %q", cfg.Driver)
	}

	store, err := openCache(ctx, cfg, b)
	if err != nil {
		return nil, err
	}
	if store != nil {
		b.registry = tenant.NewCachedRegistry(b.registry, store,
			tenant.WithCacheTTL(cfg.CacheTTL),
			tenant.WithCacheLogger(log),
		)
	}

	log.InfoContext(ctx, "tenant registry ready",
		logger.Component("registry"),
		slog.String("driver", cfg.Driver),
		slog.String("cache", cfg.Cache),
	)
	return b, nil
}

func openCache(ctx context.Context, cfg registryConfig, b *backend) (tenant.RegistryCache, error) {
	switch cfg.Cache {
	case cacheNone, "":
		return nil, nil
	case cacheMemory:
		return tenant.NewMemoryCache(cfg.CacheSize), nil
	case cacheRedis:
		var rCfg redis.Config
		if err := config.Load(&rCfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rCfg)
		if err != nil {
			return nil, err
		}
		b.checks = append(b.checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
		b.closers = append(b.closers, httpserver.WithCloser("redis", client.Close))
		return redis.NewRegistryCache(client, rCfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown registry cache %q", cfg.Cache)
	}
}
