package connpool

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/dmitrymomot/tenantgate/pkg/tenant"
)

// Option configures a Pool.
type Option func(*Pool)

// WithConfig applies the non-zero fields of cfg.
func WithConfig(cfg Config) Option {
	return func(p *Pool) {
		if cfg.Capacity > 0 {
			p.capacity = cfg.Capacity
		}
		if cfg.TTL > 0 {
			p.ttl = cfg.TTL
		}
		if cfg.Width > 0 {
			p.width = cfg.Width
		}
		if cfg.SweepInterval != 0 {
			p.sweepInterval = cfg.SweepInterval
		}
		if cfg.CloseTimeout > 0 {
			p.closeTimeout = cfg.CloseTimeout
		}
	}
}

// WithCapacity sets the maximum number of cached handles.
func WithCapacity(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// WithTTL sets how long a handle may stay idle before the sweep closes it.
func WithTTL(ttl time.Duration) Option {
	return func(p *Pool) {
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithPoolWidth sets the connection count of each handle.
func WithPoolWidth(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.width = n
		}
	}
}

// WithSweepInterval sets how often idle handles are swept.
// A negative interval disables the background sweeper.
func WithSweepInterval(d time.Duration) Option {
	return func(p *Pool) {
		p.sweepInterval = d
	}
}

// WithCloseTimeout bounds how long closing waits for a pending creation.
// A handle created after the bound is closed in the background.
func WithCloseTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.closeTimeout = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pool) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the pool logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMeter records pool metrics on m.
func WithMeter(m metric.Meter) Option {
	return func(p *Pool) {
		if m != nil {
			p.meter = m
		}
	}
}

// WithFallbackCredentials sets the database used for the unregistered
// fallback pair, whose tenant id is uuid.Nil.
func WithFallbackCredentials(creds tenant.Credentials) Option {
	return func(p *Pool) {
		p.fallback = &creds
	}
}
