package tenant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Status values recognised on tenants and orgs. Anything other than
// StatusActive blocks resolution.
const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// Features holds the per-tenant flags that decide how a tenant is addressed.
type Features struct {
	CustomDomain bool `json:"custom_domain" yaml:"custom_domain" bson:"custom_domain"`
	Subdomain    bool `json:"subdomain" yaml:"subdomain" bson:"subdomain"`
}

// Tenant is a top-level customer account.
type Tenant struct {
	ID            uuid.UUID `json:"id" yaml:"id"`
	Slug          string    `json:"slug" yaml:"slug"`
	Name          string    `json:"name" yaml:"name"`
	Status        string    `json:"status" yaml:"status"`
	PrimaryDomain string    `json:"primary_domain,omitempty" yaml:"primary_domain"`
	Features      Features  `json:"features" yaml:"features"`
}

// IsActive reports whether the tenant may be resolved.
func (t *Tenant) IsActive() bool { return t != nil && t.Status == StatusActive }

// Org is a sub-account of a tenant and the unit of schema isolation.
type Org struct {
	ID         uuid.UUID `json:"id" yaml:"id"`
	TenantID   uuid.UUID `json:"tenant_id" yaml:"tenant_id"`
	Slug       string    `json:"slug" yaml:"slug"`
	SchemaName string    `json:"schema_name" yaml:"schema_name"`
	Status     string    `json:"status" yaml:"status"`
	IsDefault  bool      `json:"is_default" yaml:"is_default"`
}

// IsActive reports whether the org may be resolved.
func (o *Org) IsActive() bool { return o != nil && o.Status == StatusActive }

// BelongsTo reports whether the org is owned by t.
func (o *Org) BelongsTo(t *Tenant) bool {
	return o != nil && t != nil && o.TenantID == t.ID
}

// DatabaseConfig is the encrypted credential record kept by the registry.
// Ciphertext is produced by secrets.EncryptJSON over a Credentials value.
type DatabaseConfig struct {
	TenantID   uuid.UUID `json:"tenant_id"`
	Ciphertext string    `json:"ciphertext"`
	KeySalt    []byte    `json:"key_salt"`
}

// Credentials is the decrypted form of a DatabaseConfig.
type Credentials struct {
	Host     string            `json:"host"`
	Port     string            `json:"port"`
	Database string            `json:"database"`
	User     string            `json:"user"`
	Password string            `json:"password"`
	SSLMode  string            `json:"sslmode,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
}

// DSN renders the credentials as a postgres connection URL.
func (c Credentials) DSN() string {
	host := c.Host
	if c.Port != "" {
		host = fmt.Sprintf("%s:%s", c.Host, c.Port)
	}

	q := url.Values{}
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, c.Params[k])
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     host,
		Path:     "/" + strings.TrimPrefix(c.Database, "/"),
		RawQuery: q.Encode(),
	}
	return u.String()
}

// ParseDSN is the inverse of Credentials.DSN. It accepts postgres:// and
// postgresql:// URLs.
func ParseDSN(dsn string) (Credentials, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return Credentials{}, errors.Join(ErrInvalidDSN, err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return Credentials{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidDSN, u.Scheme)
	}
	if u.Hostname() == "" {
		return Credentials{}, fmt.Errorf("%w: missing host", ErrInvalidDSN)
	}

	c := Credentials{
		Host:     u.Hostname(),
		Port:     u.Port(),
		Database: strings.TrimPrefix(u.Path, "/"),
	}
	if u.User != nil {
		c.User = u.User.Username()
		c.Password, _ = u.User.Password()
	}
	for k, v := range u.Query() {
		if len(v) == 0 {
			continue
		}
		if k == "sslmode" {
			c.SSLMode = v[0]
			continue
		}
		if c.Params == nil {
			c.Params = make(map[string]string)
		}
		c.Params[k] = v[0]
	}
	return c, nil
}

// Handle is a live database handle bound to one org schema.
// Close must be idempotent.
type Handle interface {
	Close()
}

// Registry is the read-only source of tenant and org records.
// Lookups that find nothing return ErrTenantNotFound, ErrOrgNotFound,
// ErrDomainNotFound or ErrDatabaseConfigNotFound (possibly wrapped).
type Registry interface {
	GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error)
	// GetTenantByDomain returns the tenant owning a verified custom domain
	// together with the org the domain points at.
	GetTenantByDomain(ctx context.Context, domain string) (*Tenant, *Org, error)
	GetOrg(ctx context.Context, id uuid.UUID) (*Org, error)
	GetOrgBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Org, error)
	GetDefaultOrg(ctx context.Context, tenantID uuid.UUID) (*Org, error)
	GetTenantDatabaseConfig(ctx context.Context, tenantID uuid.UUID) (*DatabaseConfig, error)
}

// ConnectionProvider hands out the database handle for a resolved pair.
type ConnectionProvider interface {
	GetConnection(ctx context.Context, t *Tenant, o *Org) (Handle, error)
}
