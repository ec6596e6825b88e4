package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantgate/pkg/logger"
)

// Resolver runs an ordered strategy chain and returns the first definite
// outcome.
type Resolver struct {
	registry   Registry
	cfg        Config
	strategies []Strategy
	redirector *Redirector
	fallbackT  Tenant
	fallbackO  Org
	logger     *slog.Logger
	custom     bool
	// recheck reloads the resolved pair by id before activation when
	// the registry serves from a cache.
	recheck bool
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithConfig replaces the resolver configuration.
func WithConfig(cfg Config) ResolverOption {
	return func(r *Resolver) {
		r.cfg = cfg
	}
}

// WithBaseDomain enables subdomain and custom domain resolution.
func WithBaseDomain(domain string) ResolverOption {
	return func(r *Resolver) {
		r.cfg.BaseDomain = domain
	}
}

// WithHeaders overrides the tenant and org slug header names.
func WithHeaders(tenantHeader, orgHeader string) ResolverOption {
	return func(r *Resolver) {
		r.cfg.TenantHeader = tenantHeader
		r.cfg.OrgHeader = orgHeader
	}
}

// WithAuthGatewayOrigin attaches origin as redirectTo on 404 outcomes.
func WithAuthGatewayOrigin(origin string) ResolverOption {
	return func(r *Resolver) {
		r.cfg.AuthGatewayOrigin = origin
	}
}

// WithRedirectScheme sets the scheme of canonical tenant URLs.
func WithRedirectScheme(scheme string) ResolverOption {
	return func(r *Resolver) {
		r.cfg.RedirectScheme = scheme
	}
}

// WithRootSlug sets the tenant slug served on the bare base domain.
func WithRootSlug(slug string) ResolverOption {
	return func(r *Resolver) {
		r.cfg.RootSlug = slug
	}
}

// WithFallback replaces the pair served on the bare base domain when the
// root tenant is not registered.
func WithFallback(t Tenant, o Org) ResolverOption {
	return func(r *Resolver) {
		r.fallbackT, r.fallbackO = t, o
	}
}

// WithStrategies replaces the default chain.
func WithStrategies(strategies ...Strategy) ResolverOption {
	return func(r *Resolver) {
		r.strategies = strategies
		r.custom = true
	}
}

// WithResolverLogger sets the logger used for strategy failures.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// FallbackPair returns the built-in tenant and org served on the bare base
// domain before a root tenant is provisioned.
func FallbackPair(rootSlug string) (Tenant, Org) {
	if rootSlug == "" {
		rootSlug = DefaultRootSlug
	}
	return Tenant{
			ID:     uuid.Nil,
			Slug:   rootSlug,
			Name:   "Root",
			Status: StatusActive,
		}, Org{
			ID:         uuid.Nil,
			TenantID:   uuid.Nil,
			Slug:       DefaultOrgSlug,
			SchemaName: DefaultSchema,
			Status:     StatusActive,
			IsDefault:  true,
		}
}

// NewSubdomainStrategy resolves <org>.<tenant>.<base> and <tenant>.<base>
// hosts. Only the two labels closest to the base domain are used.
func NewSubdomainStrategy(registry Registry, cfg Config) Strategy {
	cfg.withDefaults()
	ft, fo := FallbackPair(cfg.RootSlug)
	return &subdomainStrategy{
		registry:       registry,
		baseDomain:     cfg.BaseDomain,
		orgHeader:      cfg.OrgHeader,
		rootSlug:       normalizeLabel(cfg.RootSlug),
		fallbackTenant: ft,
		fallbackOrg:    fo,
	}
}

// NewResolver builds a Resolver with the session, custom domain, subdomain
// and header strategies in that order.
func NewResolver(registry Registry, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		registry: registry,
		cfg: Config{
			TenantHeader:   DefaultTenantHeader,
			OrgHeader:      DefaultOrgHeader,
			RedirectScheme: "https",
			RootSlug:       DefaultRootSlug,
		},
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.cfg.withDefaults()

	r.redirector = NewRedirector(registry, r.cfg.BaseDomain, r.cfg.RedirectScheme)
	_, r.recheck = registry.(*CachedRegistry)

	if !r.custom {
		sub := NewSubdomainStrategy(registry, r.cfg).(*subdomainStrategy)
		if r.fallbackT.Slug != "" {
			sub.fallbackTenant, sub.fallbackOrg = r.fallbackT, r.fallbackO
		}
		r.strategies = []Strategy{
			NewSessionStrategy(registry, r.redirector),
			NewDomainStrategy(registry, r.cfg.BaseDomain),
			sub,
			NewHeaderStrategy(registry, r.cfg.TenantHeader, r.cfg.OrgHeader),
		}
	}
	return r
}

// Redirector exposes the resolver's mismatch redirector.
func (r *Resolver) Redirector() *Redirector { return r.redirector }

// Resolve returns the resolution of the first strategy that produces a
// definite outcome. When none does, requests without a credential get 401
// and the rest get 404.
func (r *Resolver) Resolve(ctx context.Context, sig Signals) (*Resolution, error) {
	for _, s := range r.strategies {
		start := time.Now()
		res, err := s.Resolve(ctx, sig)
		if err == nil && res != nil && r.recheck && s.Name() != SourceSession {
			err = r.confirm(ctx, res)
		}
		if err != nil {
			if re, ok := AsResolutionError(err); ok {
				r.logger.DebugContext(ctx, "tenant resolution rejected",
					logger.Strategy(s.Name()),
					logger.Host(sig.Host),
					slog.String("kind", re.Kind.String()),
					slog.Int("status", re.Status),
				)
				return nil, r.decorate(re)
			}
			r.logger.ErrorContext(ctx, "tenant resolution failed",
				logger.Strategy(s.Name()),
				logger.Host(sig.Host),
				logger.Duration(time.Since(start)),
				logger.Error(err),
			)
			return nil, fmt.Errorf("tenant: %s strategy: %w", s.Name(), err)
		}
		if res != nil {
			res.Source = s.Name()
			return res, nil
		}
	}

	if !sig.HasCredential {
		return nil, notAuthorized()
	}
	return nil, r.decorate(notFound(MessageUndetermined))
}

// confirm reloads a resolved pair from the source registry and repeats the
// activation check. The built-in fallback pair is not registered and is
// left as is.
func (r *Resolver) confirm(ctx context.Context, res *Resolution) error {
	if res.Tenant == nil || res.Org == nil || res.Tenant.ID == uuid.Nil {
		return nil
	}
	fresh := WithFreshRead(ctx)

	t, err := r.registry.GetTenant(fresh, res.Tenant.ID)
	if errors.Is(err, ErrTenantNotFound) {
		return notFound("Tenant '%s' not found", res.Tenant.Slug)
	} else if err != nil {
		return err
	}
	o, err := r.registry.GetOrg(fresh, res.Org.ID)
	if errors.Is(err, ErrOrgNotFound) {
		return notFound("Organization '%s' not found", res.Org.Slug)
	} else if err != nil {
		return err
	}
	if !o.BelongsTo(t) {
		return notFound("Organization '%s' not found", res.Org.Slug)
	}
	if err := ensureActive(t, o); err != nil {
		return err
	}
	res.Tenant, res.Org = t, o
	return nil
}

func (r *Resolver) decorate(re *ResolutionError) *ResolutionError {
	if re.Kind == KindNotFound && re.RedirectTo == "" && r.cfg.AuthGatewayOrigin != "" {
		re.RedirectTo = r.cfg.AuthGatewayOrigin
	}
	return re
}
