package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("failed to create metrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumValue(t *testing.T, rm metricdata.ResourceMetrics, name string) int64 {
	t.Helper()
	found := findMetric(rm, name)
	if found == nil {
		t.Fatalf("%s metric not found", name)
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: expected Sum[int64], got %T", name, found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatalf("%s: no data points", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

// TestMetrics_RequestCounterIncrements verifies guard.requests.total is incremented.
func TestMetrics_RequestCounterIncrements(t *testing.T) {
	m, reader := newTestMetrics(t)

	meta := OpMeta{Operation: "createClient", Class: "normal"}
	m.RecordRequest(context.Background(), meta, 100*time.Millisecond, nil)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "guard.requests.total"); got != 1 {
		t.Errorf("guard.requests.total = %d, want 1", got)
	}
}

// TestMetrics_ErrorCounterOnSuccess verifies the error counter stays at zero.
func TestMetrics_ErrorCounterOnSuccess(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), OpMeta{Operation: "op"}, 50*time.Millisecond, nil)

	rm := collect(t, reader)
	found := findMetric(rm, "guard.errors.total")
	if found == nil {
		return // never incremented, never exported
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) > 0 && sum.DataPoints[0].Value != 0 {
		t.Errorf("guard.errors.total = %d, want 0", sum.DataPoints[0].Value)
	}
}

// TestMetrics_ErrorCounterOnFailure verifies the error counter increments on failure.
func TestMetrics_ErrorCounterOnFailure(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), OpMeta{Operation: "op"}, 50*time.Millisecond, errors.New("boom"))

	rm := collect(t, reader)
	if got := sumValue(t, rm, "guard.errors.total"); got != 1 {
		t.Errorf("guard.errors.total = %d, want 1", got)
	}
}

// TestMetrics_DurationHistogram verifies durations are recorded.
func TestMetrics_DurationHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), OpMeta{Operation: "op"}, 250*time.Millisecond, nil)

	rm := collect(t, reader)
	found := findMetric(rm, "guard.op.duration_ms")
	if found == nil {
		t.Fatal("guard.op.duration_ms metric not found")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if hist.DataPoints[0].Sum != 250 {
		t.Errorf("duration sum = %v, want 250", hist.DataPoints[0].Sum)
	}
}

// TestMetrics_DurationKeepsFractionalMilliseconds verifies sub-millisecond
// calls do not collapse to zero in the histogram.
func TestMetrics_DurationKeepsFractionalMilliseconds(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordRequest(context.Background(), OpMeta{Operation: "op"}, 250*time.Microsecond, nil)

	rm := collect(t, reader)
	found := findMetric(rm, "guard.op.duration_ms")
	if found == nil {
		t.Fatal("guard.op.duration_ms metric not found")
	}
	hist, ok := found.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("expected Histogram[float64], got %T", found.Data)
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if hist.DataPoints[0].Sum != 0.25 {
		t.Errorf("duration sum = %v, want 0.25", hist.DataPoints[0].Sum)
	}
}

// TestMetrics_DenialCounter verifies guard.ratelimit.denied.total.
func TestMetrics_DenialCounter(t *testing.T) {
	m, reader := newTestMetrics(t)

	meta := OpMeta{Operation: "createClient", Class: "normal"}
	m.RecordDenial(context.Background(), meta)
	m.RecordDenial(context.Background(), meta)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "guard.ratelimit.denied.total"); got != 2 {
		t.Errorf("guard.ratelimit.denied.total = %d, want 2", got)
	}
}

// TestMetrics_BreakerTransitions verifies transition attributes.
func TestMetrics_BreakerTransitions(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.RecordBreakerTransition(context.Background(), "syncLedger", "closed", "open")

	rm := collect(t, reader)
	found := findMetric(rm, "guard.breaker.transitions")
	if found == nil {
		t.Fatal("guard.breaker.transitions metric not found")
	}
	sum, ok := found.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("expected Sum[int64], got %T", found.Data)
	}
	if len(sum.DataPoints) == 0 {
		t.Fatal("no data points")
	}

	dp := sum.DataPoints[0]
	if v, ok := dp.Attributes.Value(attribute.Key("from")); !ok || v.AsString() != "closed" {
		t.Errorf("from attribute = %v, want closed", v)
	}
	if v, ok := dp.Attributes.Value(attribute.Key("to")); !ok || v.AsString() != "open" {
		t.Errorf("to attribute = %v, want open", v)
	}
}

// TestMetrics_RetryAttempts verifies guard.retry.attempts.
func TestMetrics_RetryAttempts(t *testing.T) {
	m, reader := newTestMetrics(t)

	meta := OpMeta{Operation: "op"}
	m.RecordRetry(context.Background(), meta, 2)
	m.RecordRetry(context.Background(), meta, 3)

	rm := collect(t, reader)
	if got := sumValue(t, rm, "guard.retry.attempts"); got != 2 {
		t.Errorf("guard.retry.attempts = %d, want 2", got)
	}
}

// TestNopMetrics verifies the no-op implementation does not panic.
func TestNopMetrics(t *testing.T) {
	m := NopMetrics()
	m.RecordRequest(context.Background(), OpMeta{}, time.Second, errors.New("x"))
	m.RecordDenial(context.Background(), OpMeta{})
	m.RecordBreakerTransition(context.Background(), "op", "closed", "open")
	m.RecordRetry(context.Background(), OpMeta{}, 2)
}
