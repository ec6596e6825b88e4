package tenant

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrymomot/tenantgate/pkg/logger"
)

// Middleware resolves the tenant of every request, fetches its database
// handle from pool and runs the rest of the chain inside the resulting
// Scope.
func Middleware(resolver *Resolver, pool ConnectionProvider, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range cfg.skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			ctx := r.Context()

			sig, err := SignalsFromRequest(r, cfg.claims)
			if err != nil {
				cfg.logger.ErrorContext(ctx, "failed to read session claims", logger.Error(err))
				cfg.errorHandler(w, r, err)
				return
			}

			res, err := resolver.Resolve(ctx, sig)
			if err != nil {
				if re, ok := AsResolutionError(err); ok {
					if re.ClearSession && cfg.clearer != nil {
						cfg.clearer.ClearSession(w, r)
					}
				} else {
					cfg.logger.ErrorContext(ctx, "tenant resolution failed",
						logger.Host(sig.Host),
						logger.Error(err),
					)
				}
				cfg.errorHandler(w, r, err)
				return
			}

			handle, err := pool.GetConnection(ctx, res.Tenant, res.Org)
			if err != nil {
				cfg.logger.ErrorContext(ctx, "failed to acquire tenant connection",
					logger.TenantID(res.Tenant.ID),
					logger.OrgID(res.Org.ID),
					logger.Schema(res.Org.SchemaName),
					logger.Strategy(res.Source),
					logger.Error(err),
				)
				cfg.errorHandler(w, r, err)
				return
			}

			scope := Scope{
				Tenant: res.Tenant,
				Org:    res.Org,
				Schema: res.Org.SchemaName,
				Handle: handle,
			}
			_ = RunInScope(ctx, scope, func(ctx context.Context) error {
				next.ServeHTTP(w, r.WithContext(ctx))
				return nil
			})
		})
	}
}

// RequireScope rejects requests that reach it without an active Scope.
func RequireScope(errorHandler ErrorHandler) func(http.Handler) http.Handler {
	if errorHandler == nil {
		errorHandler = DefaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := FromContext(r.Context()); !ok {
				errorHandler(w, r, notFound(MessageUndetermined))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
