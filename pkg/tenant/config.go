package tenant

// Config is the environment-driven resolver configuration.
type Config struct {
	// BaseDomain enables subdomain and custom domain resolution when set.
	BaseDomain string `env:"TENANT_BASE_DOMAIN"`
	// TenantHeader and OrgHeader carry explicit slugs.
	TenantHeader string `env:"TENANT_HEADER" envDefault:"X-Tenant-Slug"`
	OrgHeader    string `env:"TENANT_ORG_HEADER" envDefault:"X-Org-Slug"`
	// AuthGatewayOrigin is attached as redirectTo on 404 responses.
	AuthGatewayOrigin string `env:"TENANT_AUTH_GATEWAY_ORIGIN"`
	// RedirectScheme is used to build canonical tenant URLs.
	RedirectScheme string `env:"TENANT_REDIRECT_SCHEME" envDefault:"https"`
	// RootSlug is the tenant served on the bare base domain.
	RootSlug string `env:"TENANT_ROOT_SLUG" envDefault:"root"`
}

// Default header names.
const (
	DefaultTenantHeader = "X-Tenant-Slug"
	DefaultOrgHeader    = "X-Org-Slug"
	DefaultRootSlug     = "root"
	DefaultOrgSlug      = "default"
	DefaultSchema       = "public"
)

func (c *Config) withDefaults() {
	if c.TenantHeader == "" {
		c.TenantHeader = DefaultTenantHeader
	}
	if c.OrgHeader == "" {
		c.OrgHeader = DefaultOrgHeader
	}
	if c.RedirectScheme == "" {
		c.RedirectScheme = "https"
	}
	if c.RootSlug == "" {
		c.RootSlug = DefaultRootSlug
	}
	c.BaseDomain = normalizeHost(c.BaseDomain)
}
