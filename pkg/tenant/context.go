package tenant

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Scope is the request-scoped binding of the resolved pair and its handle.
type Scope struct {
	Tenant *Tenant
	Org    *Org
	Schema string
	Handle Handle
}

type scopeKey struct{}

type scopeBox struct {
	scope  Scope
	closed atomic.Bool
}

// WithScope binds s to ctx. The scope stops being visible through the
// returned context, and every context derived from it, once release is
// called.
func WithScope(ctx context.Context, s Scope) (scoped context.Context, release func()) {
	box := &scopeBox{scope: s}
	return context.WithValue(ctx, scopeKey{}, box), func() { box.closed.Store(true) }
}

// RunInScope runs fn with s bound to its context and tears the binding down
// when fn returns or panics.
func RunInScope(ctx context.Context, s Scope, fn func(ctx context.Context) error) error {
	scoped, release := WithScope(ctx, s)
	defer release()
	return fn(scoped)
}

// FromContext returns the active scope.
func FromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	box, ok := ctx.Value(scopeKey{}).(*scopeBox)
	if !ok || box.closed.Load() {
		return Scope{}, false
	}
	return box.scope, true
}

// MustFromContext returns the active scope and panics without one.
func MustFromContext(ctx context.Context) Scope {
	s, ok := FromContext(ctx)
	if !ok {
		panic(ErrNoScope)
	}
	return s
}

// HandleFromContext returns the database handle of the active scope.
func HandleFromContext(ctx context.Context) (Handle, error) {
	s, ok := FromContext(ctx)
	if !ok || s.Handle == nil {
		return nil, ErrNoScope
	}
	return s.Handle, nil
}

// LoggerExtractor adds the tenant and org ids of the active scope to log
// records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		s, ok := FromContext(ctx)
		if !ok || s.Tenant == nil {
			return slog.Attr{}, false
		}
		attrs := []any{slog.String("id", s.Tenant.ID.String()), slog.String("slug", s.Tenant.Slug)}
		if s.Org != nil {
			attrs = append(attrs, slog.String("org_id", s.Org.ID.String()))
		}
		return slog.Group("tenant", attrs...), true
	}
}
