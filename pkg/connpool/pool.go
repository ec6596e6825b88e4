package connpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/dmitrymomot/tenantgate/pkg/async"
	"github.com/dmitrymomot/tenantgate/pkg/logger"
	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

// Factory builds a live handle bound to one schema.
type Factory interface {
	CreateHandle(ctx context.Context, creds tenant.Credentials, schema string, width int) (tenant.Handle, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context, creds tenant.Credentials, schema string, width int) (tenant.Handle, error)

func (f FactoryFunc) CreateHandle(ctx context.Context, creds tenant.Credentials, schema string, width int) (tenant.Handle, error) {
	return f(ctx, creds, schema, width)
}

// Key returns the cache key of a (tenant, org) pair.
func Key(tenantID, orgID uuid.UUID) string {
	return tenantID.String() + ":" + orgID.String()
}

// entry is pending until its future settles and ready afterwards. It moves
// from pending to ready at most once.
type entry struct {
	key      string
	tenantID uuid.UUID
	orgID    uuid.UUID
	schema   string
	future   *async.Future[tenant.Handle]
	handle   tenant.Handle
	ready    bool
	lastUsed time.Time
}

// Pool caches one handle per (tenant, org) pair. Concurrent callers for a
// missing key share one creation. Capacity is enforced by evicting the
// least recently used ready entry; idle ready entries are closed after the
// TTL.
type Pool struct {
	registry  tenant.Registry
	factory   Factory
	decrypter Decrypter
	fallback  *tenant.Credentials

	capacity      int
	ttl           time.Duration
	width         int
	sweepInterval time.Duration
	closeTimeout  time.Duration
	now           func() time.Time
	logger        *slog.Logger
	meter         metric.Meter
	metrics       *metrics

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	closers   sync.WaitGroup
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Pool and starts its sweeper.
func New(registry tenant.Registry, factory Factory, decrypter Decrypter, opts ...Option) (*Pool, error) {
	p := &Pool{
		registry:      registry,
		factory:       factory,
		decrypter:     decrypter,
		capacity:      DefaultCapacity,
		ttl:           DefaultTTL,
		width:         DefaultWidth,
		sweepInterval: DefaultSweepInterval,
		closeTimeout:  DefaultCloseTimeout,
		now:           time.Now,
		logger:        logger.Discard(),
		meter:         defaultMeter(),
		entries:       make(map[string]*entry),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	m, err := newMetrics(p.meter, p.GetCacheSize)
	if err != nil {
		return nil, fmt.Errorf("connpool: register metrics: %w", err)
	}
	p.metrics = m

	if p.sweepInterval > 0 {
		go p.sweep()
	} else {
		close(p.done)
	}
	return p, nil
}

// GetConnection returns the handle for (t, o), creating it on first use.
// Waiting stops when ctx ends, but a creation already in flight continues
// and populates the pool for later callers.
func (p *Pool) GetConnection(ctx context.Context, t *tenant.Tenant, o *tenant.Org) (tenant.Handle, error) {
	if t == nil || o == nil {
		return nil, ErrInvalidTarget
	}
	if !o.BelongsTo(t) {
		return nil, ErrOrgMismatch
	}
	key := Key(t.ID, o.ID)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	if e, ok := p.entries[key]; ok {
		e.lastUsed = p.now()
		if e.ready {
			h := e.handle
			p.mu.Unlock()
			p.metrics.hits.Add(ctx, 1)
			return h, nil
		}
		f := e.future
		p.mu.Unlock()
		p.metrics.hits.Add(ctx, 1)
		return f.AwaitContext(ctx)
	}

	victim := p.makeRoomLocked(ctx)

	e := &entry{
		key:      key,
		tenantID: t.ID,
		orgID:    o.ID,
		schema:   o.SchemaName,
		lastUsed: p.now(),
	}
	// The placeholder is published before the lock is released, so every
	// later caller for key finds it and waits on the same future.
	e.future = async.Async(context.WithoutCancel(ctx), e, p.create)
	p.entries[key] = e
	p.mu.Unlock()

	p.metrics.misses.Add(ctx, 1)
	if victim != nil {
		p.closeInBackground(victim)
	}
	return e.future.AwaitContext(ctx)
}

// makeRoomLocked removes the ready entry with the oldest lastUsed when the
// pool is full. Pending entries are never chosen; if every entry is pending
// the pool temporarily grows past capacity.
func (p *Pool) makeRoomLocked(ctx context.Context) *entry {
	if len(p.entries) < p.capacity {
		return nil
	}

	var oldest *entry
	for _, e := range p.entries {
		if !e.ready {
			continue
		}
		if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
			oldest = e
		}
	}
	if oldest == nil {
		p.logger.WarnContext(ctx, "connection pool over capacity, all entries pending",
			logger.Component("connpool"),
			slog.Int("capacity", p.capacity),
			slog.Int("size", len(p.entries)),
		)
		return nil
	}

	delete(p.entries, oldest.key)
	p.metrics.evicted(ctx, reasonLRU, 1)
	p.logger.DebugContext(ctx, "evicted least recently used connection",
		logger.Component("connpool"),
		logger.CacheKey(oldest.key),
		logger.Schema(oldest.schema),
	)
	return oldest
}

// create runs once per placeholder.
func (p *Pool) create(ctx context.Context, e *entry) (tenant.Handle, error) {
	start := p.now()
	h, err := p.build(ctx, e)
	p.metrics.latency.Record(ctx, p.now().Sub(start).Seconds())

	p.mu.Lock()
	owned := p.entries[e.key] == e
	if err != nil {
		if owned {
			delete(p.entries, e.key)
		}
		p.mu.Unlock()

		p.metrics.failures.Add(ctx, 1)
		p.logger.ErrorContext(ctx, "failed to create tenant connection",
			logger.Component("connpool"),
			logger.TenantID(e.tenantID),
			logger.OrgID(e.orgID),
			logger.Schema(e.schema),
			logger.Error(err),
		)
		return nil, err
	}

	// A removed placeholder is closed by whoever removed it once this
	// future settles.
	if owned {
		e.handle = h
		e.ready = true
		e.lastUsed = p.now()
	}
	p.mu.Unlock()

	p.metrics.creations.Add(ctx, 1)
	p.logger.DebugContext(ctx, "tenant connection created",
		logger.Component("connpool"),
		logger.CacheKey(e.key),
		logger.Schema(e.schema),
		logger.Duration(p.now().Sub(start)),
	)
	return h, nil
}

func (p *Pool) build(ctx context.Context, e *entry) (tenant.Handle, error) {
	creds, err := p.credentials(ctx, e.tenantID)
	if err != nil {
		return nil, err
	}

	h, err := p.factory.CreateHandle(ctx, creds, e.schema, p.width)
	if err != nil {
		return nil, errors.Join(ErrCreateHandle, err)
	}
	if h == nil {
		return nil, ErrNilHandle
	}
	return h, nil
}

// credentials returns the decrypted credentials of tenantID. The nil tenant
// is the unregistered fallback pair and uses the fallback credentials.
func (p *Pool) credentials(ctx context.Context, tenantID uuid.UUID) (tenant.Credentials, error) {
	if tenantID == uuid.Nil {
		if p.fallback == nil {
			return tenant.Credentials{}, ErrNoFallbackDB
		}
		return *p.fallback, nil
	}

	cfg, err := p.registry.GetTenantDatabaseConfig(ctx, tenantID)
	if err != nil {
		return tenant.Credentials{}, errors.Join(ErrLoadConfig, err)
	}
	creds, err := p.decrypter.Decrypt(ctx, cfg)
	if err != nil {
		return tenant.Credentials{}, errors.Join(ErrDecrypt, err)
	}
	return creds, nil
}

// EvictConnection removes and closes the entry for the pair. A pending entry
// is closed once its creation settles; a failed creation is ignored. It
// reports whether an entry existed.
func (p *Pool) EvictConnection(tenantID, orgID uuid.UUID) bool {
	key := Key(tenantID, orgID)

	p.mu.Lock()
	e, ok := p.entries[key]
	if ok {
		delete(p.entries, key)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	p.metrics.evicted(context.Background(), reasonExplicit, 1)
	p.closeEntry(e)
	return true
}

// EvictExpired closes every ready entry idle for longer than the TTL and
// returns how many were removed.
func (p *Pool) EvictExpired() int {
	p.mu.Lock()
	now := p.now()
	var expired []*entry
	for key, e := range p.entries {
		if e.ready && now.Sub(e.lastUsed) > p.ttl {
			delete(p.entries, key)
			expired = append(expired, e)
		}
	}
	p.mu.Unlock()

	for _, e := range expired {
		p.closeEntry(e)
	}
	if n := len(expired); n > 0 {
		p.metrics.evicted(context.Background(), reasonTTL, n)
		p.logger.Debug("evicted idle connections",
			logger.Component("connpool"),
			slog.Int("count", n),
		)
	}
	return len(expired)
}

// CloseAll waits for in-flight creations, closes every handle and empties
// the pool. The pool stays usable afterwards.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	all := make([]*entry, 0, len(p.entries))
	for _, e := range p.entries {
		all = append(all, e)
	}
	clear(p.entries)
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, e := range all {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.closeEntry(e)
		}()
	}
	wg.Wait()
	p.closers.Wait()

	p.metrics.evicted(context.Background(), reasonShutdown, len(all))
}

// GetCacheSize returns the number of entries, pending ones included.
func (p *Pool) GetCacheSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Close stops the sweeper, rejects further lookups and closes every handle.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		if p.sweepInterval > 0 {
			close(p.stop)
		}
		<-p.done
		p.CloseAll()
	})
	return nil
}

// closeEntry closes e, waiting up to the close timeout for its creation when
// it is still pending. Past the timeout the handle is closed once it settles.
func (p *Pool) closeEntry(e *entry) {
	h, err := e.future.AwaitWithTimeout(p.closeTimeout)
	if errors.Is(err, async.ErrTimeout) {
		p.logger.Warn("pending connection outlived close timeout",
			logger.Component("connpool"),
			logger.CacheKey(e.key),
			logger.Duration(p.closeTimeout),
		)
		go func() {
			if h, err := e.future.Await(); err == nil && h != nil {
				h.Close()
			}
		}()
		return
	}
	if err != nil || h == nil {
		return
	}
	h.Close()
}

func (p *Pool) closeInBackground(e *entry) {
	p.closers.Add(1)
	go func() {
		defer p.closers.Done()
		p.closeEntry(e)
	}()
}

func (p *Pool) sweep() {
	defer close(p.done)

	ticker := time.NewTicker(p.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.EvictExpired()
		case <-p.stop:
			return
		}
	}
}
