package tenant

import (
	"log/slog"

	"github.com/dmitrymomot/tenantgate/pkg/logger"
)

type config struct {
	errorHandler ErrorHandler
	skipPaths    []string
	claims       ClaimsReader
	clearer      SessionClearer
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets path prefixes that bypass tenant resolution.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// WithClaimsReader sets the session claims source. When the reader also
// implements SessionClearer it is used to drop invalid sessions.
func WithClaimsReader(reader ClaimsReader) Option {
	return func(c *config) {
		c.claims = reader
		if cl, ok := reader.(SessionClearer); ok && c.clearer == nil {
			c.clearer = cl
		}
	}
}

// WithSessionClearer sets how a session_invalid response clears the session.
func WithSessionClearer(clearer SessionClearer) Option {
	return func(c *config) {
		c.clearer = clearer
	}
}

// WithLogger sets a custom logger for the middleware.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func defaultConfig() *config {
	return &config{
		errorHandler: DefaultErrorHandler,
		logger:       logger.Discard(),
	}
}
