// Package redis connects to Redis with go-redis/v9 and provides
// RegistryCache, a shared tenant.RegistryCache for tenant.CachedRegistry.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	registry := tenant.NewCachedRegistry(pgRegistry,
//		redis.NewRegistryCache(client, cfg.KeyPrefix))
package redis
