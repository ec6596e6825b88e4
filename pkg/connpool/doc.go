// Package connpool caches one live database handle per (tenant, org) pair.
//
// The first caller for a missing pair publishes a pending entry and starts
// the creation (load the encrypted config from the registry, decrypt it,
// call the Factory with the org schema). Every caller that arrives while the
// creation is in flight waits on the same future, so the Factory runs at most
// once per pair at a time. A failed creation removes its entry so the next
// call retries.
//
// The pool holds at most Capacity entries. On a miss at capacity the ready
// entry with the oldest last use is evicted and closed in the background.
// Entries idle for longer than the TTL are closed by a background sweeper or
// an explicit EvictExpired call. Pending entries are never evicted by either.
//
//	dec, _ := connpool.NewSecretsDecrypterFromString(cfg.MasterKey)
//	pool, err := connpool.New(registry, pg.NewFactory(), dec,
//		connpool.WithConfig(cfg),
//		connpool.WithLogger(log),
//	)
//	defer pool.Close()
//
// Pool implements tenant.ConnectionProvider.
package connpool
