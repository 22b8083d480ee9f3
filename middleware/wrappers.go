package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/guardrail/fault"
	"github.com/jonwraymond/guardrail/observe"
	"github.com/jonwraymond/guardrail/ratelimit"
	"github.com/jonwraymond/guardrail/resilience"
)

// RateLimit gates calls through the limiter. A denial short-circuits with
// the limiter's *ratelimit.DeniedError; the wrapped handler is not invoked.
func RateLimit(limiter *ratelimit.Limiter) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (any, error) {
			if _, err := limiter.Check(ctx, req.PrincipalID, req.Operation, req.Class); err != nil {
				return nil, err
			}
			return next(ctx, req)
		}
	}
}

// CircuitBreak guards each operation with its own breaker, created lazily
// in the registry on the operation's first call.
func CircuitBreak(breakers *resilience.Registry) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (any, error) {
			cb := breakers.Get(req.Operation)

			var result any
			err := cb.Execute(ctx, func(ctx context.Context) error {
				var opErr error
				result, opErr = next(ctx, req)
				return opErr
			})
			if err != nil {
				return nil, err
			}
			return result, nil
		}
	}
}

// Retry re-executes the wrapped handler per the retry policy. Attempts
// beyond the first are recorded on metrics when provided.
func Retry(r *resilience.Retry, metrics observe.Metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (any, error) {
			var result any
			attempt := 0

			err := r.Execute(ctx, func(ctx context.Context) error {
				attempt++
				if attempt > 1 && metrics != nil {
					metrics.RecordRetry(ctx, req.Meta(), attempt)
				}
				var opErr error
				result, opErr = next(ctx, req)
				return opErr
			})
			if err != nil {
				return nil, err
			}
			return result, nil
		}
	}
}

// Bulkhead caps concurrent executions of the wrapped handler.
func Bulkhead(b *resilience.Bulkhead) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (any, error) {
			var result any
			err := b.Execute(ctx, func(ctx context.Context) error {
				var opErr error
				result, opErr = next(ctx, req)
				return opErr
			})
			if err != nil {
				return nil, err
			}
			return result, nil
		}
	}
}

// WithTimeout bounds the wrapped handler's execution time.
func WithTimeout(d time.Duration) Middleware {
	t := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: d})
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (any, error) {
			var result any
			err := t.Execute(ctx, func(ctx context.Context) error {
				var opErr error
				result, opErr = next(ctx, req)
				return opErr
			})
			if err != nil {
				return nil, err
			}
			return result, nil
		}
	}
}

// Audit records a span, duration metrics, and a structured log line for
// every call, including rate-limit denials.
func Audit(tracer observe.Tracer, metrics observe.Metrics, logger observe.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (any, error) {
			meta := req.Meta()
			ctx, span := tracer.StartSpan(ctx, meta)
			start := time.Now()

			result, err := next(ctx, req)

			duration := time.Since(start)
			tracer.EndSpan(span, err)
			metrics.RecordRequest(ctx, meta, duration, err)

			var denied *ratelimit.DeniedError
			if errors.As(err, &denied) {
				metrics.RecordDenial(ctx, meta)
			}

			opLogger := logger.WithOp(meta)
			fields := []observe.Field{
				{Key: "duration_ms", Value: float64(duration) / float64(time.Millisecond)},
			}
			if err != nil {
				fields = append(fields, observe.Field{Key: "error", Value: err.Error()})
				opLogger.Warn(ctx, "guarded call failed", fields...)
			} else {
				opLogger.Debug(ctx, "guarded call completed", fields...)
			}

			return result, err
		}
	}
}

// Classify normalizes every error crossing the boundary into a
// *fault.Error. Internal faults are logged in full server-side, keyed by
// the correlation id that the outward error also carries; no error is ever
// silently dropped.
func Classify(classifier *fault.Classifier, logger observe.Logger) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, req Request) (any, error) {
			result, err := next(ctx, req)
			if err == nil {
				return result, nil
			}

			fe := classifier.Classify(err)
			if fe.Kind == fault.Internal {
				logger.WithOp(req.Meta()).Error(ctx, "internal error",
					observe.Field{Key: "correlation_id", Value: fe.CorrelationID},
					observe.Field{Key: "error", Value: err.Error()},
				)
			}
			return nil, fe
		}
	}
}
