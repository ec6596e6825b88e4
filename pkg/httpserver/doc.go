// Package httpserver runs an http.Handler with graceful shutdown.
//
// Run blocks until its context ends or the process receives SIGINT or
// SIGTERM, then Shutdown drains in-flight requests and calls the closers
// registered with WithCloser in reverse order. The tenant connection pool is
// registered as a closer so that every tenant handle is released after the
// last request that could use it.
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithCloser("connpool", pool.Close),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// HealthHandler serves liveness and readiness probes as JSON.
package httpserver
