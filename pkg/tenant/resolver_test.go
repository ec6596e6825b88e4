package tenant_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

func newResolver(reg tenant.Registry, opts ...tenant.ResolverOption) *tenant.Resolver {
	return tenant.NewResolver(reg, append([]tenant.ResolverOption{tenant.WithBaseDomain(baseDomain)}, opts...)...)
}

func hostSignals(host string) tenant.Signals {
	return tenant.Signals{Host: host, Path: "/", Header: http.Header{}}
}

func sessionSignals(host string, tenantID, orgID uuid.UUID) tenant.Signals {
	sig := hostSignals(host)
	sig.Claims = &tenant.SessionClaims{TenantID: tenantID.String(), OrgID: orgID.String()}
	sig.HasCredential = true
	return sig
}

func requireResolutionError(t *testing.T, err error) *tenant.ResolutionError {
	t.Helper()
	require.Error(t, err)
	re, ok := tenant.AsResolutionError(err)
	require.True(t, ok, "expected ResolutionError, got %v", err)
	return re
}

func TestResolver_Subdomain(t *testing.T) {
	t.Parallel()

	r := newResolver(newFixtureRegistry())

	tests := []struct {
		name       string
		host       string
		orgHeader  string
		wantTenant string
		wantOrg    string
	}{
		{"org and tenant labels", "engineering.acme.example.com", "", "acme", "engineering"},
		{"tenant label uses default org", "acme.example.com", "", "acme", "main"},
		{"only last two labels matter", "a.b.c.example.com", "", "c", "b"},
		{"mixed case host", "Engineering.ACME.Example.com", "", "acme", "engineering"},
		{"port stripped", "acme.example.com:8443", "", "acme", "main"},
		{"org header without org label", "acme.example.com", "engineering", "acme", "engineering"},
		{"org label wins over header", "main.acme.example.com", "engineering", "acme", "main"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sig := hostSignals(tt.host)
			if tt.orgHeader != "" {
				sig.Header.Set(tenant.DefaultOrgHeader, tt.orgHeader)
			}

			res, err := r.Resolve(context.Background(), sig)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTenant, res.Tenant.Slug)
			assert.Equal(t, tt.wantOrg, res.Org.Slug)
			assert.Equal(t, res.Tenant.ID, res.Org.TenantID)
			assert.Equal(t, tenant.SourceSubdomain, res.Source)
		})
	}
}

func TestResolver_BareBaseDomain(t *testing.T) {
	t.Parallel()

	t.Run("falls back when root tenant is absent", func(t *testing.T) {
		t.Parallel()

		r := newResolver(newFixtureRegistry())
		for _, host := range []string{"example.com", "www.example.com"} {
			res, err := r.Resolve(context.Background(), hostSignals(host))
			require.NoError(t, err)
			assert.Equal(t, tenant.DefaultRootSlug, res.Tenant.Slug)
			assert.Equal(t, uuid.Nil, res.Tenant.ID)
			assert.Equal(t, tenant.DefaultSchema, res.Org.SchemaName)
		}
	})

	t.Run("uses registered root tenant", func(t *testing.T) {
		t.Parallel()

		reg := newFixtureRegistry()
		r := newResolver(reg, tenant.WithRootSlug("acme"))

		res, err := r.Resolve(context.Background(), hostSignals("example.com"))
		require.NoError(t, err)
		assert.Equal(t, acmeID, res.Tenant.ID)
		assert.Equal(t, acmeMainID, res.Org.ID)
	})

	t.Run("custom fallback pair", func(t *testing.T) {
		t.Parallel()

		ft, fo := tenant.FallbackPair("landing")
		fo.SchemaName = "landing"
		r := newResolver(newFixtureRegistry(), tenant.WithFallback(ft, fo))

		res, err := r.Resolve(context.Background(), hostSignals("example.com"))
		require.NoError(t, err)
		assert.Equal(t, "landing", res.Tenant.Slug)
		assert.Equal(t, "landing", res.Org.SchemaName)
	})
}

func TestResolver_NotFoundAndInactive(t *testing.T) {
	t.Parallel()

	r := newResolver(newFixtureRegistry(), tenant.WithAuthGatewayOrigin("https://auth.example.com"))

	tests := []struct {
		name       string
		host       string
		wantStatus int
		wantMsg    string
		wantRedir  string
	}{
		{"unknown tenant", "nobody.example.com", http.StatusNotFound, "Tenant 'nobody' not found", "https://auth.example.com"},
		{"unknown org", "sales.acme.example.com", http.StatusNotFound, "Organization 'sales' not found", "https://auth.example.com"},
		{"unknown custom domain", "unknown.net", http.StatusNotFound, "Domain 'unknown.net' is not registered", "https://auth.example.com"},
		{"suspended tenant", "hooli.example.com", http.StatusForbidden, "Tenant 'hooli' is not active", ""},
		{"suspended org", "legacy.pied.example.com", http.StatusForbidden, "Organization 'legacy' is not active", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := r.Resolve(context.Background(), hostSignals(tt.host))
			re := requireResolutionError(t, err)
			assert.Equal(t, tt.wantStatus, re.Status)
			assert.Equal(t, tt.wantMsg, re.Message)
			assert.Equal(t, tt.wantRedir, re.RedirectTo)
		})
	}
}

func TestResolver_CustomDomain(t *testing.T) {
	t.Parallel()

	r := newResolver(newFixtureRegistry())

	res, err := r.Resolve(context.Background(), hostSignals("INITECH.io:443"))
	require.NoError(t, err)
	assert.Equal(t, initechID, res.Tenant.ID)
	assert.Equal(t, initechOrgID, res.Org.ID)
	assert.Equal(t, tenant.SourceDomain, res.Source)

	t.Run("unknown domain does not fall through to headers", func(t *testing.T) {
		t.Parallel()

		sig := hostSignals("unknown.net")
		sig.Header.Set(tenant.DefaultTenantHeader, "acme")

		_, err := r.Resolve(context.Background(), sig)
		re := requireResolutionError(t, err)
		assert.Equal(t, tenant.KindNotFound, re.Kind)
	})
}

func TestResolver_Header(t *testing.T) {
	t.Parallel()

	// No base domain: only session and header strategies can fire.
	r := tenant.NewResolver(newFixtureRegistry())

	sig := hostSignals("localhost:8080")
	sig.Header.Set(tenant.DefaultTenantHeader, "ACME")
	sig.Header.Set(tenant.DefaultOrgHeader, "engineering")

	res, err := r.Resolve(context.Background(), sig)
	require.NoError(t, err)
	assert.Equal(t, acmeEngID, res.Org.ID)
	assert.Equal(t, tenant.SourceHeader, res.Source)

	t.Run("custom header names", func(t *testing.T) {
		t.Parallel()

		r := tenant.NewResolver(newFixtureRegistry(), tenant.WithHeaders("X-Workspace", "X-Team"))
		sig := hostSignals("localhost")
		sig.Header.Set("X-Workspace", "c")
		sig.Header.Set("X-Team", "b")

		res, err := r.Resolve(context.Background(), sig)
		require.NoError(t, err)
		assert.Equal(t, cBID, res.Org.ID)
	})

	t.Run("unknown tenant header is not found", func(t *testing.T) {
		t.Parallel()

		sig := hostSignals("localhost")
		sig.Header.Set(tenant.DefaultTenantHeader, "ghost")

		_, err := r.Resolve(context.Background(), sig)
		re := requireResolutionError(t, err)
		assert.Equal(t, http.StatusNotFound, re.Status)
	})
}

func TestResolver_NoSignal(t *testing.T) {
	t.Parallel()

	r := tenant.NewResolver(newFixtureRegistry())

	t.Run("without credential", func(t *testing.T) {
		t.Parallel()

		_, err := r.Resolve(context.Background(), hostSignals("localhost"))
		re := requireResolutionError(t, err)
		assert.Equal(t, http.StatusUnauthorized, re.Status)
		assert.Equal(t, "Not authorized", re.Message)
	})

	t.Run("with credential", func(t *testing.T) {
		t.Parallel()

		sig := hostSignals("localhost")
		sig.HasCredential = true

		_, err := r.Resolve(context.Background(), sig)
		re := requireResolutionError(t, err)
		assert.Equal(t, http.StatusNotFound, re.Status)
		assert.Equal(t, "Unable to determine tenant from URL", re.Message)
	})

	t.Run("partial claims fall through", func(t *testing.T) {
		t.Parallel()

		sig := hostSignals("localhost")
		sig.Claims = &tenant.SessionClaims{TenantID: acmeID.String()}
		sig.HasCredential = true

		_, err := r.Resolve(context.Background(), sig)
		re := requireResolutionError(t, err)
		assert.Equal(t, http.StatusNotFound, re.Status)
	})
}

func TestResolver_Session(t *testing.T) {
	t.Parallel()

	reg := newFixtureRegistry()
	r := newResolver(reg)

	t.Run("resolves by id", func(t *testing.T) {
		t.Parallel()

		res, err := r.Resolve(context.Background(), sessionSignals("engineering.acme.example.com", acmeID, acmeEngID))
		require.NoError(t, err)
		assert.Equal(t, acmeID, res.Tenant.ID)
		assert.Equal(t, acmeEngID, res.Org.ID)
		assert.Equal(t, tenant.SourceSession, res.Source)
	})

	t.Run("session org wins over url org", func(t *testing.T) {
		t.Parallel()

		res, err := r.Resolve(context.Background(), sessionSignals("engineering.acme.example.com", acmeID, acmeMainID))
		require.NoError(t, err)
		assert.Equal(t, acmeMainID, res.Org.ID)
	})

	t.Run("no url signal means no mismatch", func(t *testing.T) {
		t.Parallel()

		for _, host := range []string{"example.com", "www.example.com", "unknown.net"} {
			res, err := r.Resolve(context.Background(), sessionSignals(host, acmeID, acmeMainID))
			require.NoError(t, err, host)
			assert.Equal(t, acmeID, res.Tenant.ID)
		}
	})

	t.Run("headers never trigger mismatch", func(t *testing.T) {
		t.Parallel()

		sig := sessionSignals("example.com", acmeID, acmeMainID)
		sig.Header.Set(tenant.DefaultTenantHeader, "c")

		res, err := r.Resolve(context.Background(), sig)
		require.NoError(t, err)
		assert.Equal(t, acmeID, res.Tenant.ID)
	})

	invalid := []struct {
		name string
		sig  tenant.Signals
	}{
		{"deleted tenant", sessionSignals("acme.example.com", uuid.New(), acmeMainID)},
		{"deleted org", sessionSignals("acme.example.com", acmeID, uuid.New())},
		{"org of another tenant", sessionSignals("acme.example.com", acmeID, cMainID)},
		{"malformed tenant id", func() tenant.Signals {
			s := sessionSignals("acme.example.com", acmeID, acmeMainID)
			s.Claims.TenantID = "not-a-uuid"
			return s
		}()},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := r.Resolve(context.Background(), tt.sig)
			re := requireResolutionError(t, err)
			assert.Equal(t, http.StatusUnauthorized, re.Status)
			assert.Equal(t, "session_invalid", re.Message)
			assert.True(t, re.ClearSession)
		})
	}

	t.Run("inactive tenant is forbidden", func(t *testing.T) {
		t.Parallel()

		_, err := r.Resolve(context.Background(), sessionSignals("hooli.example.com", hooliID, hooliOrgID))
		re := requireResolutionError(t, err)
		assert.Equal(t, http.StatusForbidden, re.Status)
		assert.Contains(t, re.Message, "hooli")
	})

	t.Run("inactive org is forbidden", func(t *testing.T) {
		t.Parallel()

		_, err := r.Resolve(context.Background(), sessionSignals("pied.example.com", piedID, piedLegacyID))
		re := requireResolutionError(t, err)
		assert.Equal(t, "Organization 'legacy' is not active", re.Message)
	})
}

func TestResolver_SessionMismatch(t *testing.T) {
	t.Parallel()

	r := newResolver(newFixtureRegistry())

	tests := []struct {
		name     string
		host     string
		tenantID uuid.UUID
		orgID    uuid.UUID
		want     string
	}{
		{"custom domain tier", "acme.example.com", initechID, initechOrgID, "https://initech.io"},
		{"subdomain tier", "c.example.com", acmeID, acmeMainID, "https://acme.example.com"},
		{"path tier", "acme.example.com", umbrellaID, umbrellaOrg, "https://example.com/umbrella"},
		{"url on another custom domain", "initech.io", acmeID, acmeMainID, "https://acme.example.com"},
		{"url tenant unknown to registry", "ghost.example.com", cID, cMainID, "https://example.com/c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sig := sessionSignals(tt.host, tt.tenantID, tt.orgID)
			sig.Path = "/deep/link?x=1"

			_, err := r.Resolve(context.Background(), sig)
			re := requireResolutionError(t, err)
			assert.Equal(t, tenant.KindMismatch, re.Kind)
			assert.Equal(t, http.StatusForbidden, re.Status)
			assert.Equal(t, "tenant_mismatch", re.Message)
			assert.Equal(t, tt.want, re.RedirectTo)
			assert.False(t, re.ClearSession)
		})
	}

	t.Run("redirect scheme is configurable", func(t *testing.T) {
		t.Parallel()

		r := newResolver(newFixtureRegistry(), tenant.WithRedirectScheme("http"))
		_, err := r.Resolve(context.Background(), sessionSignals("c.example.com", acmeID, acmeMainID))
		re := requireResolutionError(t, err)
		assert.Equal(t, "http://acme.example.com", re.RedirectTo)
	})
}

func TestResolver_InternalErrors(t *testing.T) {
	t.Parallel()

	r := newResolver(failingRegistry{newFixtureRegistry()})

	for _, sig := range []tenant.Signals{
		hostSignals("acme.example.com"),
		hostSignals("initech.io"),
		sessionSignals("acme.example.com", acmeID, acmeMainID),
	} {
		_, err := r.Resolve(context.Background(), sig)
		require.Error(t, err)
		_, ok := tenant.AsResolutionError(err)
		assert.False(t, ok)
		assert.ErrorIs(t, err, errRegistryDown)
	}
}

func TestResolver_CustomStrategies(t *testing.T) {
	t.Parallel()

	reg := newFixtureRegistry()
	r := tenant.NewResolver(reg, tenant.WithStrategies(tenant.NewHeaderStrategy(reg, "", "")))

	// Subdomain resolution is not part of this chain.
	sig := hostSignals("acme.example.com")
	sig.HasCredential = true
	_, err := r.Resolve(context.Background(), sig)
	re := requireResolutionError(t, err)
	assert.Equal(t, http.StatusNotFound, re.Status)
}

func TestRedirector_CanonicalURL(t *testing.T) {
	t.Parallel()

	rd := tenant.NewRedirector(nil, "Example.com", "")

	assert.Equal(t, "https://shop.acme.com", rd.CanonicalURL(&tenant.Tenant{
		Slug: "acme", PrimaryDomain: "shop.acme.com",
		Features: tenant.Features{CustomDomain: true, Subdomain: true},
	}))
	// Custom domain flag without a recorded domain drops to the next tier.
	assert.Equal(t, "https://acme.example.com", rd.CanonicalURL(&tenant.Tenant{
		Slug:     "acme",
		Features: tenant.Features{CustomDomain: true, Subdomain: true},
	}))
	assert.Equal(t, "https://example.com/acme", rd.CanonicalURL(&tenant.Tenant{
		Slug: "acme", PrimaryDomain: "shop.acme.com",
	}))
}
