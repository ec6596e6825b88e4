package tenant_test

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

const baseDomain = "example.com"

var (
	acmeID       = uuid.MustParse("10000000-0000-0000-0000-000000000001")
	acmeMainID   = uuid.MustParse("10000000-0000-0000-0000-0000000000a1")
	acmeEngID    = uuid.MustParse("10000000-0000-0000-0000-0000000000a2")
	cID          = uuid.MustParse("20000000-0000-0000-0000-000000000001")
	cMainID      = uuid.MustParse("20000000-0000-0000-0000-0000000000a1")
	cBID         = uuid.MustParse("20000000-0000-0000-0000-0000000000a2")
	initechID    = uuid.MustParse("30000000-0000-0000-0000-000000000001")
	initechOrgID = uuid.MustParse("30000000-0000-0000-0000-0000000000a1")
	umbrellaID   = uuid.MustParse("40000000-0000-0000-0000-000000000001")
	umbrellaOrg  = uuid.MustParse("40000000-0000-0000-0000-0000000000a1")
	hooliID      = uuid.MustParse("50000000-0000-0000-0000-000000000001")
	hooliOrgID   = uuid.MustParse("50000000-0000-0000-0000-0000000000a1")
	piedID       = uuid.MustParse("60000000-0000-0000-0000-000000000001")
	piedMainID   = uuid.MustParse("60000000-0000-0000-0000-0000000000a1")
	piedLegacyID = uuid.MustParse("60000000-0000-0000-0000-0000000000a2")
)

func org(id uuid.UUID, slug string, isDefault bool) tenant.Org {
	return tenant.Org{
		ID:         id,
		Slug:       slug,
		SchemaName: "org_" + slug,
		Status:     tenant.StatusActive,
		IsDefault:  isDefault,
	}
}

// newFixtureRegistry builds:
//
//	acme      subdomain tier, orgs main (default) and engineering
//	c         path tier, orgs main (default) and b
//	initech   custom domain tier on initech.io
//	umbrella  path tier
//	hooli     suspended
//	pied      active, org legacy suspended
func newFixtureRegistry() *tenant.StaticRegistry {
	reg := tenant.NewStaticRegistry()

	reg.AddTenant(tenant.Tenant{
		ID: acmeID, Slug: "acme", Name: "Acme", Status: tenant.StatusActive,
		Features: tenant.Features{Subdomain: true},
	}, org(acmeMainID, "main", true), org(acmeEngID, "engineering", false))

	reg.AddTenant(tenant.Tenant{
		ID: cID, Slug: "c", Name: "C", Status: tenant.StatusActive,
	}, org(cMainID, "main", true), org(cBID, "b", false))

	reg.AddTenant(tenant.Tenant{
		ID: initechID, Slug: "initech", Name: "Initech", Status: tenant.StatusActive,
		PrimaryDomain: "initech.io",
		Features:      tenant.Features{CustomDomain: true, Subdomain: true},
	}, org(initechOrgID, "main", true))
	reg.AddDomain("initech.io", initechID, uuid.Nil)

	reg.AddTenant(tenant.Tenant{
		ID: umbrellaID, Slug: "umbrella", Name: "Umbrella", Status: tenant.StatusActive,
	}, org(umbrellaOrg, "main", true))

	reg.AddTenant(tenant.Tenant{
		ID: hooliID, Slug: "hooli", Name: "Hooli", Status: tenant.StatusSuspended,
	}, org(hooliOrgID, "main", true))

	legacy := org(piedLegacyID, "legacy", false)
	legacy.Status = tenant.StatusSuspended
	reg.AddTenant(tenant.Tenant{
		ID: piedID, Slug: "pied", Name: "Pied Piper", Status: tenant.StatusActive,
	}, org(piedMainID, "main", true), legacy)

	return reg
}

var errRegistryDown = errors.New("registry unavailable")

// failingRegistry fails every lookup with errRegistryDown.
type failingRegistry struct {
	*tenant.StaticRegistry
}

func (failingRegistry) GetTenant(context.Context, uuid.UUID) (*tenant.Tenant, error) {
	return nil, errRegistryDown
}

func (failingRegistry) GetTenantBySlug(context.Context, string) (*tenant.Tenant, error) {
	return nil, errRegistryDown
}

func (failingRegistry) GetTenantByDomain(context.Context, string) (*tenant.Tenant, *tenant.Org, error) {
	return nil, nil, errRegistryDown
}

// countingRegistry counts upstream lookups per method.
type countingRegistry struct {
	tenant.Registry

	mu    sync.Mutex
	calls map[string]int
}

func newCountingRegistry(next tenant.Registry) *countingRegistry {
	return &countingRegistry{Registry: next, calls: make(map[string]int)}
}

func (c *countingRegistry) inc(name string) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
}

func (c *countingRegistry) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *countingRegistry) GetTenant(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	c.inc("GetTenant")
	return c.Registry.GetTenant(ctx, id)
}

func (c *countingRegistry) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	c.inc("GetTenantBySlug")
	return c.Registry.GetTenantBySlug(ctx, slug)
}

func (c *countingRegistry) GetTenantByDomain(ctx context.Context, domain string) (*tenant.Tenant, *tenant.Org, error) {
	c.inc("GetTenantByDomain")
	return c.Registry.GetTenantByDomain(ctx, domain)
}

func (c *countingRegistry) GetDefaultOrg(ctx context.Context, tenantID uuid.UUID) (*tenant.Org, error) {
	c.inc("GetDefaultOrg")
	return c.Registry.GetDefaultOrg(ctx, tenantID)
}

func (c *countingRegistry) GetTenantDatabaseConfig(ctx context.Context, tenantID uuid.UUID) (*tenant.DatabaseConfig, error) {
	c.inc("GetTenantDatabaseConfig")
	return c.Registry.GetTenantDatabaseConfig(ctx, tenantID)
}
