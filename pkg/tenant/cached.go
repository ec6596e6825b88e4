package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/tenantgate/pkg/cache"
	"github.com/dmitrymomot/tenantgate/pkg/logger"
)

// RegistryCache stores encoded registry records.
type RegistryCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryCache is an in-process RegistryCache backed by an LRU.
type MemoryCache struct {
	lru *cache.LRUCache[string, []byte]
}

// DefaultCacheSize is the default capacity of MemoryCache.
const DefaultCacheSize = 1000

// NewMemoryCache creates a MemoryCache. A non-positive size uses
// DefaultCacheSize.
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &MemoryCache{lru: cache.NewLRUCache[string, []byte](size)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.lru.Get(key)
	return v, ok, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.lru.PutWithTTL(key, value, ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.lru.Remove(k)
	}
	return nil
}

// Len returns the number of cached records.
func (m *MemoryCache) Len() int { return m.lru.Len() }

// CachedRegistry decorates a Registry with a read-through cache.
// Concurrent misses for one key share a single upstream lookup. Not-found
// results and database configs are never cached.
type CachedRegistry struct {
	next   Registry
	cache  RegistryCache
	ttl    time.Duration
	group  singleflight.Group
	logger *slog.Logger
}

// CachedRegistryOption configures a CachedRegistry.
type CachedRegistryOption func(*CachedRegistry)

// WithCacheTTL sets how long records stay cached.
func WithCacheTTL(ttl time.Duration) CachedRegistryOption {
	return func(c *CachedRegistry) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger used for cache backend failures.
func WithCacheLogger(l *slog.Logger) CachedRegistryOption {
	return func(c *CachedRegistry) {
		if l != nil {
			c.logger = l
		}
	}
}

// DefaultCacheTTL is the default lifetime of cached records.
const DefaultCacheTTL = 5 * time.Minute

// NewCachedRegistry wraps next with store. A nil store uses a MemoryCache.
func NewCachedRegistry(next Registry, store RegistryCache, opts ...CachedRegistryOption) *CachedRegistry {
	if store == nil {
		store = NewMemoryCache(DefaultCacheSize)
	}
	c := &CachedRegistry{
		next:   next,
		cache:  store,
		ttl:    DefaultCacheTTL,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func tenantKey(id uuid.UUID) string    { return "tenant:id:" + id.String() }
func tenantSlugKey(slug string) string { return "tenant:slug:" + normalizeLabel(slug) }
func domainKey(domain string) string   { return "tenant:domain:" + normalizeHost(domain) }
func orgKey(id uuid.UUID) string       { return "org:id:" + id.String() }
func orgSlugKey(tid uuid.UUID, s string) string {
	return "org:slug:" + tid.String() + ":" + normalizeLabel(s)
}
func defaultOrgKey(tid uuid.UUID) string { return "org:default:" + tid.String() }

type freshReadKey struct{}

// WithFreshRead marks ctx so that CachedRegistry lookups bypass cached
// records and refresh them from the source registry.
func WithFreshRead(ctx context.Context) context.Context {
	return context.WithValue(ctx, freshReadKey{}, true)
}

func isFreshRead(ctx context.Context) bool {
	v, _ := ctx.Value(freshReadKey{}).(bool)
	return v
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound) || errors.Is(err, ErrOrgNotFound) || errors.Is(err, ErrDomainNotFound)
}

// fetch reads key from the cache or loads it through the single-flight group.
// The shared load runs detached from the caller's cancellation; each caller
// stops waiting when its own ctx ends.
func fetch[T any](ctx context.Context, c *CachedRegistry, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	if isFreshRead(ctx) {
		v, err := load(ctx)
		if err != nil {
			if isNotFound(err) {
				_ = c.cache.Delete(context.WithoutCancel(ctx), key)
			}
			return zero, err
		}
		c.store(ctx, key, v)
		return v, nil
	}

	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "registry cache read failed", logger.CacheKey(key), logger.Error(err))
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		c.logger.WarnContext(ctx, "registry cache entry corrupt", logger.CacheKey(key), logger.Error(ErrCacheDecode))
		_ = c.cache.Delete(ctx, key)
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := load(detached)
		if err != nil {
			return nil, err
		}
		c.store(detached, key, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		out, _ := r.Val.(T)
		return out, nil
	}
}

func (c *CachedRegistry) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err == nil {
		err = c.cache.Set(context.WithoutCancel(ctx), key, raw, c.ttl)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "registry cache write failed", logger.CacheKey(key), logger.Error(err))
	}
}

func (c *CachedRegistry) GetTenant(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	return fetch(ctx, c, tenantKey(id), func(ctx context.Context) (*Tenant, error) {
		return c.next.GetTenant(ctx, id)
	})
}

func (c *CachedRegistry) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	return fetch(ctx, c, tenantSlugKey(slug), func(ctx context.Context) (*Tenant, error) {
		return c.next.GetTenantBySlug(ctx, slug)
	})
}

type domainRecord struct {
	Tenant *Tenant `json:"tenant"`
	Org    *Org    `json:"org"`
}

func (c *CachedRegistry) GetTenantByDomain(ctx context.Context, domain string) (*Tenant, *Org, error) {
	rec, err := fetch(ctx, c, domainKey(domain), func(ctx context.Context) (domainRecord, error) {
		t, o, err := c.next.GetTenantByDomain(ctx, domain)
		return domainRecord{Tenant: t, Org: o}, err
	})
	if err != nil {
		return nil, nil, err
	}
	return rec.Tenant, rec.Org, nil
}

func (c *CachedRegistry) GetOrg(ctx context.Context, id uuid.UUID) (*Org, error) {
	return fetch(ctx, c, orgKey(id), func(ctx context.Context) (*Org, error) {
		return c.next.GetOrg(ctx, id)
	})
}

func (c *CachedRegistry) GetOrgBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Org, error) {
	return fetch(ctx, c, orgSlugKey(tenantID, slug), func(ctx context.Context) (*Org, error) {
		return c.next.GetOrgBySlug(ctx, tenantID, slug)
	})
}

func (c *CachedRegistry) GetDefaultOrg(ctx context.Context, tenantID uuid.UUID) (*Org, error) {
	return fetch(ctx, c, defaultOrgKey(tenantID), func(ctx context.Context) (*Org, error) {
		return c.next.GetDefaultOrg(ctx, tenantID)
	})
}

// GetTenantDatabaseConfig always reads through; credentials are not cached.
func (c *CachedRegistry) GetTenantDatabaseConfig(ctx context.Context, tenantID uuid.UUID) (*DatabaseConfig, error) {
	return c.next.GetTenantDatabaseConfig(ctx, tenantID)
}

// Invalidate drops every cached record derived from t.
func (c *CachedRegistry) Invalidate(ctx context.Context, t *Tenant) error {
	keys := []string{tenantKey(t.ID), tenantSlugKey(t.Slug), defaultOrgKey(t.ID)}
	if t.PrimaryDomain != "" {
		keys = append(keys, domainKey(t.PrimaryDomain))
	}
	return c.cache.Delete(ctx, keys...)
}

// InvalidateTenant drops the cached records of the tenant with id and of its
// default org. Slug and domain keys are found through the cached records.
func (c *CachedRegistry) InvalidateTenant(ctx context.Context, id uuid.UUID) error {
	keys := []string{tenantKey(id), defaultOrgKey(id)}
	if t, ok := peek[*Tenant](ctx, c, tenantKey(id)); ok && t != nil {
		keys = append(keys, tenantSlugKey(t.Slug))
		if t.PrimaryDomain != "" {
			keys = append(keys, domainKey(t.PrimaryDomain))
		}
	}
	if o, ok := peek[*Org](ctx, c, defaultOrgKey(id)); ok && o != nil {
		keys = append(keys, orgKey(o.ID), orgSlugKey(id, o.Slug))
	}
	return c.cache.Delete(ctx, keys...)
}

// peek decodes a cached record without loading it.
func peek[T any](ctx context.Context, c *CachedRegistry, key string) (T, bool) {
	var v T
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil || !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}

// InvalidateOrg drops every cached record derived from o.
func (c *CachedRegistry) InvalidateOrg(ctx context.Context, o *Org) error {
	return c.cache.Delete(ctx, orgKey(o.ID), orgSlugKey(o.TenantID, o.Slug), defaultOrgKey(o.TenantID))
}

// InvalidateDomain drops the cached record of a custom domain.
func (c *CachedRegistry) InvalidateDomain(ctx context.Context, domain string) error {
	return c.cache.Delete(ctx, domainKey(domain))
}

var (
	_ Registry = (*CachedRegistry)(nil)
	_ Registry = (*StaticRegistry)(nil)
)
