package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return NewTracer(tp.Tracer("test")), recorder
}

// TestTracer_SpanAttributes verifies operation attributes are present on the span.
func TestTracer_SpanAttributes(t *testing.T) {
	tr, recorder := newTestTracer()

	meta := OpMeta{
		Principal: "u1",
		Operation: "createClient",
		Class:     "normal",
	}

	_, span := tr.StartSpan(context.Background(), meta)
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}

	got := spans[0]
	if got.Name() != "guard.op.createClient" {
		t.Errorf("span name = %q, want %q", got.Name(), "guard.op.createClient")
	}

	attrs := make(map[attribute.Key]attribute.Value)
	for _, kv := range got.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if v := attrs["op.name"]; v.AsString() != "createClient" {
		t.Errorf("op.name = %v, want createClient", v)
	}
	if v := attrs["op.class"]; v.AsString() != "normal" {
		t.Errorf("op.class = %v, want normal", v)
	}
	if v := attrs["op.principal"]; v.AsString() != "u1" {
		t.Errorf("op.principal = %v, want u1", v)
	}
}

// TestTracer_SuccessStatus verifies Ok status on success.
func TestTracer_SuccessStatus(t *testing.T) {
	tr, recorder := newTestTracer()

	_, span := tr.StartSpan(context.Background(), OpMeta{Operation: "op"})
	tr.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status().Code)
	}
}

// TestTracer_ErrorStatus verifies error status and recorded error event.
func TestTracer_ErrorStatus(t *testing.T) {
	tr, recorder := newTestTracer()

	_, span := tr.StartSpan(context.Background(), OpMeta{Operation: "op"})
	tr.EndSpan(span, errors.New("upstream 500"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}

	got := spans[0]
	if got.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", got.Status().Code)
	}
	if got.Status().Description != "upstream 500" {
		t.Errorf("status description = %q, want %q", got.Status().Description, "upstream 500")
	}
	if len(got.Events()) == 0 {
		t.Error("no error event recorded on span")
	}
}

// TestTracer_OmitsEmptyPrincipal verifies the principal attribute is skipped when unset.
func TestTracer_OmitsEmptyPrincipal(t *testing.T) {
	tr, recorder := newTestTracer()

	_, span := tr.StartSpan(context.Background(), OpMeta{Operation: "op"})
	tr.EndSpan(span, nil)

	for _, kv := range recorder.Ended()[0].Attributes() {
		if kv.Key == "op.principal" {
			t.Error("op.principal attribute present for empty principal")
		}
	}
}

// TestNopTracer verifies the no-op tracer is safe to use.
func TestNopTracer(t *testing.T) {
	tr := NopTracer()
	ctx, span := tr.StartSpan(context.Background(), OpMeta{Operation: "op"})
	if ctx == nil {
		t.Fatal("StartSpan returned nil context")
	}
	tr.EndSpan(span, errors.New("x"))
}
