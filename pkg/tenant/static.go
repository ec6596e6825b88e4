package tenant

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// StaticRegistry is an in-memory Registry. It backs local development,
// bootstrap fixtures and tests.
type StaticRegistry struct {
	mu       sync.RWMutex
	tenants  map[uuid.UUID]Tenant
	slugs    map[string]uuid.UUID
	orgs     map[uuid.UUID]Org
	domains  map[string]domainTarget
	dbConfig map[uuid.UUID]DatabaseConfig
}

type domainTarget struct {
	tenantID uuid.UUID
	orgID    uuid.UUID
}

// NewStaticRegistry returns an empty registry.
func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		tenants:  make(map[uuid.UUID]Tenant),
		slugs:    make(map[string]uuid.UUID),
		orgs:     make(map[uuid.UUID]Org),
		domains:  make(map[string]domainTarget),
		dbConfig: make(map[uuid.UUID]DatabaseConfig),
	}
}

// AddTenant registers t and its orgs. Org tenant ids are forced to t.ID.
func (s *StaticRegistry) AddTenant(t Tenant, orgs ...Org) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tenants[t.ID] = t
	s.slugs[normalizeLabel(t.Slug)] = t.ID
	for _, o := range orgs {
		o.TenantID = t.ID
		s.orgs[o.ID] = o
	}
}

// AddOrg registers o as is, without checking its tenant.
func (s *StaticRegistry) AddOrg(o Org) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[o.ID] = o
}

// AddDomain maps a verified domain to a tenant. A nil orgID points the
// domain at the tenant's default org.
func (s *StaticRegistry) AddDomain(domain string, tenantID, orgID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domains[normalizeHost(domain)] = domainTarget{tenantID: tenantID, orgID: orgID}
}

// SetDatabaseConfig stores the encrypted credentials of a tenant.
func (s *StaticRegistry) SetDatabaseConfig(cfg DatabaseConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dbConfig[cfg.TenantID] = cfg
}

// RemoveTenant deletes a tenant with its orgs, domains and credentials.
func (s *StaticRegistry) RemoveTenant(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tenants[id]; ok {
		delete(s.slugs, normalizeLabel(t.Slug))
	}
	delete(s.tenants, id)
	delete(s.dbConfig, id)
	for oid, o := range s.orgs {
		if o.TenantID == id {
			delete(s.orgs, oid)
		}
	}
	for d, target := range s.domains {
		if target.tenantID == id {
			delete(s.domains, d)
		}
	}
}

func (s *StaticRegistry) GetTenant(_ context.Context, id uuid.UUID) (*Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return &t, nil
}

func (s *StaticRegistry) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	s.mu.RLock()
	id, ok := s.slugs[normalizeLabel(slug)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrTenantNotFound
	}
	return s.GetTenant(ctx, id)
}

func (s *StaticRegistry) GetTenantByDomain(ctx context.Context, domain string) (*Tenant, *Org, error) {
	s.mu.RLock()
	target, ok := s.domains[normalizeHost(domain)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrDomainNotFound
	}

	t, err := s.GetTenant(ctx, target.tenantID)
	if err != nil {
		return nil, nil, err
	}
	if target.orgID == uuid.Nil {
		o, err := s.GetDefaultOrg(ctx, t.ID)
		if err != nil {
			return nil, nil, err
		}
		return t, o, nil
	}
	o, err := s.GetOrg(ctx, target.orgID)
	if err != nil {
		return nil, nil, err
	}
	return t, o, nil
}

func (s *StaticRegistry) GetOrg(_ context.Context, id uuid.UUID) (*Org, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrgNotFound
	}
	return &o, nil
}

func (s *StaticRegistry) GetOrgBySlug(_ context.Context, tenantID uuid.UUID, slug string) (*Org, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slug = normalizeLabel(slug)
	for _, o := range s.orgs {
		if o.TenantID == tenantID && normalizeLabel(o.Slug) == slug {
			return &o, nil
		}
	}
	return nil, ErrOrgNotFound
}

func (s *StaticRegistry) GetDefaultOrg(_ context.Context, tenantID uuid.UUID) (*Org, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orgs {
		if o.TenantID == tenantID && o.IsDefault {
			return &o, nil
		}
	}
	return nil, ErrOrgNotFound
}

func (s *StaticRegistry) GetTenantDatabaseConfig(_ context.Context, tenantID uuid.UUID) (*DatabaseConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.dbConfig[tenantID]
	if !ok {
		return nil, ErrDatabaseConfigNotFound
	}
	return &cfg, nil
}

type staticDocument struct {
	Tenants []staticTenant `yaml:"tenants"`
}

type staticTenant struct {
	ID            string         `yaml:"id"`
	Slug          string         `yaml:"slug"`
	Name          string         `yaml:"name"`
	Status        string         `yaml:"status"`
	PrimaryDomain string         `yaml:"primary_domain"`
	Features      Features       `yaml:"features"`
	Domains       []staticDomain `yaml:"domains"`
	Database      *staticDB      `yaml:"database"`
	Orgs          []staticOrg    `yaml:"orgs"`
}

type staticDomain struct {
	Host string `yaml:"host"`
	Org  string `yaml:"org"`
}

type staticDB struct {
	Ciphertext string `yaml:"ciphertext"`
	KeySalt    string `yaml:"key_salt"`
}

type staticOrg struct {
	ID         string `yaml:"id"`
	Slug       string `yaml:"slug"`
	SchemaName string `yaml:"schema_name"`
	Status     string `yaml:"status"`
	IsDefault  bool   `yaml:"is_default"`
}

// LoadStaticRegistry reads a YAML registry document from path.
func LoadStaticRegistry(path string) (*StaticRegistry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidStaticRegistry, err)
	}
	defer f.Close()
	return ParseStaticRegistry(f)
}

// ParseStaticRegistry decodes a YAML registry document. Tenant and org
// statuses default to active; a domain without an org points at the
// tenant's default org.
func ParseStaticRegistry(r io.Reader) (*StaticRegistry, error) {
	var doc staticDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidStaticRegistry, err)
	}

	reg := NewStaticRegistry()
	for _, st := range doc.Tenants {
		if err := reg.addDocumentTenant(st); err != nil {
			return nil, errors.Join(ErrInvalidStaticRegistry, err)
		}
	}
	return reg, nil
}

func (s *StaticRegistry) addDocumentTenant(st staticTenant) error {
	id, err := uuid.Parse(st.ID)
	if err != nil {
		return fmt.Errorf("tenant %q: %w", st.Slug, err)
	}
	if st.Slug == "" {
		return fmt.Errorf("tenant %s: empty slug", id)
	}

	t := Tenant{
		ID:            id,
		Slug:          normalizeLabel(st.Slug),
		Name:          st.Name,
		Status:        orDefault(st.Status, StatusActive),
		PrimaryDomain: normalizeHost(st.PrimaryDomain),
		Features:      st.Features,
	}

	bySlug := make(map[string]uuid.UUID, len(st.Orgs))
	orgs := make([]Org, 0, len(st.Orgs))
	for _, so := range st.Orgs {
		oid, err := uuid.Parse(so.ID)
		if err != nil {
			return fmt.Errorf("org %q of tenant %q: %w", so.Slug, st.Slug, err)
		}
		slug := normalizeLabel(so.Slug)
		bySlug[slug] = oid
		orgs = append(orgs, Org{
			ID:         oid,
			Slug:       slug,
			SchemaName: orDefault(so.SchemaName, DefaultSchema),
			Status:     orDefault(so.Status, StatusActive),
			IsDefault:  so.IsDefault,
		})
	}
	s.AddTenant(t, orgs...)

	for _, d := range st.Domains {
		var orgID uuid.UUID
		if d.Org != "" {
			var ok bool
			if orgID, ok = bySlug[normalizeLabel(d.Org)]; !ok {
				return fmt.Errorf("domain %q: unknown org %q", d.Host, d.Org)
			}
		}
		s.AddDomain(d.Host, id, orgID)
	}

	if st.Database != nil {
		salt, err := base64.StdEncoding.DecodeString(st.Database.KeySalt)
		if err != nil {
			return fmt.Errorf("tenant %q key_salt: %w", st.Slug, err)
		}
		s.SetDatabaseConfig(DatabaseConfig{TenantID: id, Ciphertext: st.Database.Ciphertext, KeySalt: salt})
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
