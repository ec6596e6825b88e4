package connpool

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope of pool metrics.
const MeterName = "github.com/dmitrymomot/tenantgate/pkg/connpool"

// Eviction reasons.
const (
	reasonLRU      = "lru"
	reasonTTL      = "ttl"
	reasonExplicit = "explicit"
	reasonShutdown = "shutdown"
)

type metrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	creations metric.Int64Counter
	failures  metric.Int64Counter
	evictions metric.Int64Counter
	latency   metric.Float64Histogram
}

func defaultMeter() metric.Meter {
	return noop.NewMeterProvider().Meter(MeterName)
}

func newMetrics(m metric.Meter, size func() int) (*metrics, error) {
	var (
		out  metrics
		err  error
		errs []error
	)

	out.hits, err = m.Int64Counter("connpool.hits", metric.WithDescription("Lookups served by an existing entry."))
	errs = append(errs, err)
	out.misses, err = m.Int64Counter("connpool.misses", metric.WithDescription("Lookups that started a handle creation."))
	errs = append(errs, err)
	out.creations, err = m.Int64Counter("connpool.creations", metric.WithDescription("Handles created successfully."))
	errs = append(errs, err)
	out.failures, err = m.Int64Counter("connpool.failures", metric.WithDescription("Handle creations that failed."))
	errs = append(errs, err)
	out.evictions, err = m.Int64Counter("connpool.evictions", metric.WithDescription("Handles removed from the pool."))
	errs = append(errs, err)
	out.latency, err = m.Float64Histogram("connpool.create.duration",
		metric.WithDescription("Time spent creating a handle."),
		metric.WithUnit("s"),
	)
	errs = append(errs, err)
	_, err = m.Int64ObservableGauge("connpool.size",
		metric.WithDescription("Entries in the pool, pending ones included."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(size()))
			return nil
		}),
	)
	errs = append(errs, err)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &out, nil
}

func (m *metrics) evicted(ctx context.Context, reason string, n int) {
	if n <= 0 {
		return
	}
	m.evictions.Add(ctx, int64(n), metric.WithAttributes(attribute.String("reason", reason)))
}
