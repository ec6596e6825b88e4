package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Resolution is a definite successful strategy outcome.
type Resolution struct {
	Tenant *Tenant
	Org    *Org
	// Source names the strategy that produced the result.
	Source string
}

// Strategy tries to resolve a tenant from request signals.
//
// A nil Resolution with a nil error means the strategy saw no signal and the
// next one should run. A *ResolutionError is a definite failure that stops
// the chain. Any other error is internal.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, sig Signals) (*Resolution, error)
}

// Strategy names.
const (
	SourceSession   = "session"
	SourceDomain    = "custom_domain"
	SourceSubdomain = "subdomain"
	SourceHeader    = "header"
)

// lookupOrg loads the org named by slug, or the tenant's default org when
// slug is empty, and checks ownership.
func lookupOrg(ctx context.Context, reg Registry, t *Tenant, slug string) (*Org, error) {
	var (
		o   *Org
		err error
	)
	if slug != "" {
		o, err = reg.GetOrgBySlug(ctx, t.ID, slug)
	} else {
		o, err = reg.GetDefaultOrg(ctx, t.ID)
	}
	switch {
	case errors.Is(err, ErrOrgNotFound) && slug != "":
		return nil, notFound("Organization '%s' not found", slug)
	case errors.Is(err, ErrOrgNotFound):
		return nil, notFound("Tenant '%s' has no default organization", t.Slug)
	case err != nil:
		return nil, err
	}
	if !o.BelongsTo(t) {
		return nil, notFound("Organization '%s' not found", o.Slug)
	}
	return o, nil
}

func lookupTenantBySlug(ctx context.Context, reg Registry, slug string) (*Tenant, error) {
	t, err := reg.GetTenantBySlug(ctx, slug)
	if errors.Is(err, ErrTenantNotFound) {
		return nil, notFound("Tenant '%s' not found", slug)
	}
	return t, err
}

func resolved(t *Tenant, o *Org) (*Resolution, error) {
	if err := ensureActive(t, o); err != nil {
		return nil, err
	}
	return &Resolution{Tenant: t, Org: o}, nil
}

type sessionStrategy struct {
	registry   Registry
	redirector *Redirector
}

// NewSessionStrategy resolves from session claims by id. A claim that points
// at a missing or foreign record fails closed with session_invalid.
func NewSessionStrategy(registry Registry, redirector *Redirector) Strategy {
	return &sessionStrategy{registry: registry, redirector: redirector}
}

func (s *sessionStrategy) Name() string { return SourceSession }

func (s *sessionStrategy) Resolve(ctx context.Context, sig Signals) (*Resolution, error) {
	c := sig.Claims
	if c == nil || c.TenantID == "" || c.OrgID == "" {
		return nil, nil
	}

	tenantID, err := uuid.Parse(c.TenantID)
	if err != nil {
		return nil, sessionInvalid()
	}
	orgID, err := uuid.Parse(c.OrgID)
	if err != nil {
		return nil, sessionInvalid()
	}

	// Session ids are checked against the source of truth so that a deleted
	// or suspended tenant is rejected without waiting for cache expiry.
	fresh := WithFreshRead(ctx)
	t, err := s.registry.GetTenant(fresh, tenantID)
	if errors.Is(err, ErrTenantNotFound) {
		return nil, sessionInvalid()
	} else if err != nil {
		return nil, err
	}

	o, err := s.registry.GetOrg(fresh, orgID)
	if errors.Is(err, ErrOrgNotFound) {
		return nil, sessionInvalid()
	} else if err != nil {
		return nil, err
	}

	if !o.BelongsTo(t) {
		return nil, sessionInvalid()
	}
	if err := ensureActive(t, o); err != nil {
		return nil, err
	}

	if s.redirector != nil {
		if err := s.redirector.Check(ctx, sig, t); err != nil {
			return nil, err
		}
	}
	return &Resolution{Tenant: t, Org: o}, nil
}

type domainStrategy struct {
	registry   Registry
	baseDomain string
}

// NewDomainStrategy resolves hosts outside the base domain through verified
// custom domains. An unknown domain is a terminal 404.
func NewDomainStrategy(registry Registry, baseDomain string) Strategy {
	return &domainStrategy{registry: registry, baseDomain: normalizeHost(baseDomain)}
}

func (s *domainStrategy) Name() string { return SourceDomain }

func (s *domainStrategy) Resolve(ctx context.Context, sig Signals) (*Resolution, error) {
	host := normalizeHost(sig.Host)
	if !isCustomDomain(host, s.baseDomain) {
		return nil, nil
	}

	t, o, err := s.registry.GetTenantByDomain(ctx, host)
	switch {
	case errors.Is(err, ErrDomainNotFound), errors.Is(err, ErrTenantNotFound):
		return nil, notFound("Domain '%s' is not registered", host)
	case err != nil:
		return nil, err
	}

	if o == nil {
		if o, err = lookupOrg(ctx, s.registry, t, ""); err != nil {
			return nil, err
		}
	} else if !o.BelongsTo(t) {
		return nil, notFound("Organization '%s' not found", o.Slug)
	}
	return resolved(t, o)
}

type subdomainStrategy struct {
	registry       Registry
	baseDomain     string
	orgHeader      string
	rootSlug       string
	fallbackTenant Tenant
	fallbackOrg    Org
}

func (s *subdomainStrategy) Name() string { return SourceSubdomain }

func (s *subdomainStrategy) Resolve(ctx context.Context, sig Signals) (*Resolution, error) {
	labels, ok := splitHost(normalizeHost(sig.Host), s.baseDomain)
	if !ok {
		return nil, nil
	}

	orgSlug := labels.Org
	if orgSlug == "" && s.orgHeader != "" {
		orgSlug = normalizeLabel(sig.Header.Get(s.orgHeader))
	}

	if labels.Bare {
		return s.resolveRoot(ctx, orgSlug)
	}

	t, err := lookupTenantBySlug(ctx, s.registry, labels.Tenant)
	if err != nil {
		return nil, err
	}
	o, err := lookupOrg(ctx, s.registry, t, orgSlug)
	if err != nil {
		return nil, err
	}
	return resolved(t, o)
}

// resolveRoot serves the bare base domain. The root tenant is used when it
// is registered; otherwise the built-in fallback pair keeps the root domain
// reachable.
func (s *subdomainStrategy) resolveRoot(ctx context.Context, orgSlug string) (*Resolution, error) {
	t, err := s.registry.GetTenantBySlug(ctx, s.rootSlug)
	if errors.Is(err, ErrTenantNotFound) {
		ft, fo := s.fallbackTenant, s.fallbackOrg
		return resolved(&ft, &fo)
	}
	if err != nil {
		return nil, err
	}
	o, err := lookupOrg(ctx, s.registry, t, orgSlug)
	if err != nil {
		return nil, err
	}
	return resolved(t, o)
}

type headerStrategy struct {
	registry     Registry
	tenantHeader string
	orgHeader    string
}

// NewHeaderStrategy resolves from explicit slug headers. A missing tenant
// header means no signal.
func NewHeaderStrategy(registry Registry, tenantHeader, orgHeader string) Strategy {
	if tenantHeader == "" {
		tenantHeader = DefaultTenantHeader
	}
	if orgHeader == "" {
		orgHeader = DefaultOrgHeader
	}
	return &headerStrategy{registry: registry, tenantHeader: tenantHeader, orgHeader: orgHeader}
}

func (s *headerStrategy) Name() string { return SourceHeader }

func (s *headerStrategy) Resolve(ctx context.Context, sig Signals) (*Resolution, error) {
	slug := normalizeLabel(sig.Header.Get(s.tenantHeader))
	if slug == "" {
		return nil, nil
	}

	t, err := lookupTenantBySlug(ctx, s.registry, slug)
	if err != nil {
		return nil, err
	}
	o, err := lookupOrg(ctx, s.registry, t, normalizeLabel(sig.Header.Get(s.orgHeader)))
	if err != nil {
		return nil, err
	}
	return resolved(t, o)
}
