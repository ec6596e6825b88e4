// Package logger provides a context-aware wrapper around Go's slog package:
// functional options for configuration, attribute helpers with consistent
// key names, and transparent injection of request-scoped values.
//
// New builds a slog.Handler (text or JSON) and wraps it in
// ContextHandler, which runs every registered ContextExtractor on each
// record. Extractors are how the request id and the resolved tenant/org ids end
// up on every line logged with a request context.
//
// # Usage
//
//	log := logger.New(
//		logger.WithConfig(cfg),
//		logger.WithContextExtractors(
//			requestid.LoggerExtractor(),
//			tenant.LoggerExtractor(),
//		),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "connection created",
//		logger.TenantID(t.ID),
//		logger.Schema(org.SchemaName),
//	)
//
// Attribute helpers live in attr.go. Nil ids produce empty attributes, which
// slog drops.
package logger
