package tenant

import (
	"context"
	"errors"
	"net/url"
	"path"
)

// Redirector detects when the URL addresses a different tenant than the
// session and computes the session tenant's canonical origin.
type Redirector struct {
	registry   Registry
	baseDomain string
	scheme     string
}

// NewRedirector builds a Redirector. An empty scheme defaults to https.
func NewRedirector(registry Registry, baseDomain, scheme string) *Redirector {
	if scheme == "" {
		scheme = "https"
	}
	return &Redirector{
		registry:   registry,
		baseDomain: normalizeHost(baseDomain),
		scheme:     scheme,
	}
}

// URLTenantSlug returns the slug of the tenant the host addresses, checking
// a verified custom domain first and then the subdomain. It returns "" when
// the host carries no tenant signal. Headers are never consulted.
func (r *Redirector) URLTenantSlug(ctx context.Context, host string) (string, error) {
	host = normalizeHost(host)
	if r.baseDomain == "" || host == "" {
		return "", nil
	}

	if isCustomDomain(host, r.baseDomain) {
		t, _, err := r.registry.GetTenantByDomain(ctx, host)
		switch {
		case errors.Is(err, ErrDomainNotFound), errors.Is(err, ErrTenantNotFound):
			return "", nil
		case err != nil:
			return "", err
		}
		return normalizeLabel(t.Slug), nil
	}

	labels, ok := splitHost(host, r.baseDomain)
	if !ok || labels.Bare {
		return "", nil
	}
	return labels.Tenant, nil
}

// Check returns a tenant_mismatch error when the URL addresses a tenant
// other than sessionTenant. Only tenant identity is compared.
func (r *Redirector) Check(ctx context.Context, sig Signals, sessionTenant *Tenant) error {
	slug, err := r.URLTenantSlug(ctx, sig.Host)
	if err != nil {
		return err
	}
	if slug == "" || slug == normalizeLabel(sessionTenant.Slug) {
		return nil
	}
	return mismatch(r.CanonicalURL(sessionTenant))
}

// CanonicalURL returns the tenant's origin by tier: verified custom domain,
// then subdomain, then a path prefix under the base domain. The current
// request path is never included.
func (r *Redirector) CanonicalURL(t *Tenant) string {
	u := url.URL{Scheme: r.scheme}
	switch {
	case t.Features.CustomDomain && t.PrimaryDomain != "":
		u.Host = normalizeHost(t.PrimaryDomain)
	case t.Features.Subdomain:
		u.Host = normalizeLabel(t.Slug) + "." + r.baseDomain
	default:
		u.Host = r.baseDomain
		u.Path = path.Join("/", t.Slug)
	}
	return u.String()
}
