package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records guard-layer measurements.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest records one guarded call with duration and error status.
	RecordRequest(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordDenial records a rate-limit denial.
	RecordDenial(ctx context.Context, meta OpMeta)

	// RecordBreakerTransition records a circuit state change for a call site.
	RecordBreakerTransition(ctx context.Context, operation, from, to string)

	// RecordRetry records one retry attempt.
	RecordRetry(ctx context.Context, meta OpMeta, attempt int)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter        metric.Meter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	deniedCount  metric.Int64Counter
	breakerCount metric.Int64Counter
	retryCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates a Metrics instance on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"guard.requests.total",
		metric.WithDescription("Total number of guarded calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"guard.errors.total",
		metric.WithDescription("Total number of guarded calls that failed"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	deniedCount, err := meter.Int64Counter(
		"guard.ratelimit.denied.total",
		metric.WithDescription("Total number of rate-limit denials"),
		metric.WithUnit("{denial}"),
	)
	if err != nil {
		return nil, err
	}

	breakerCount, err := meter.Int64Counter(
		"guard.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"guard.retry.attempts",
		metric.WithDescription("Retry attempts beyond the first call"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"guard.op.duration_ms",
		metric.WithDescription("Guarded call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:        meter,
		totalCount:   totalCount,
		errorCount:   errorCount,
		deniedCount:  deniedCount,
		breakerCount: breakerCount,
		retryCount:   retryCount,
		durationHist: durationHist,
	}, nil
}

func opAttrs(meta OpMeta) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("op.name", meta.Operation),
		attribute.String("op.class", meta.Class),
	)
}

func (m *metricsImpl) RecordRequest(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := opAttrs(meta)
	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

func (m *metricsImpl) RecordDenial(ctx context.Context, meta OpMeta) {
	m.deniedCount.Add(ctx, 1, opAttrs(meta))
}

func (m *metricsImpl) RecordBreakerTransition(ctx context.Context, operation, from, to string) {
	m.breakerCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op.name", operation),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (m *metricsImpl) RecordRetry(ctx context.Context, meta OpMeta, attempt int) {
	m.retryCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op.name", meta.Operation),
		attribute.Int("attempt", attempt),
	))
}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics {
	return &nopMetrics{}
}

type nopMetrics struct{}

func (m *nopMetrics) RecordRequest(context.Context, OpMeta, time.Duration, error) {}
func (m *nopMetrics) RecordDenial(context.Context, OpMeta)                        {}
func (m *nopMetrics) RecordBreakerTransition(context.Context, string, string, string) {
}
func (m *nopMetrics) RecordRetry(context.Context, OpMeta, int) {}
