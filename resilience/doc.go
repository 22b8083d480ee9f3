// Package resilience provides the failure-handling primitives that guard
// calls into unreliable downstreams: circuit breaking, bounded retry with
// backoff, bulkhead isolation, and operation timeouts.
//
// # Patterns
//
//   - Circuit Breaker: a per-call-site state machine that stops calling a
//     failing dependency for a cooldown period. Breakers for many call
//     sites live in a Registry, created lazily on first use.
//
//   - Retry: bounded retry with configurable backoff (exponential, linear,
//     constant). Backoff waits are cancellable through the caller's context,
//     and the policy's RetryIf predicate decides which errors are worth
//     retrying. The default, DefaultRetryIf, never retries cancellation,
//     circuit-open rejections, rate-limit denials, or errors that report
//     themselves non-retryable.
//
//   - Bulkhead: caps concurrent operations to prevent resource exhaustion.
//
//   - Timeout: ensures an operation completes within a time limit.
//
// # Usage
//
//	breakers := resilience.NewRegistry(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    RecoveryTimeout:  time.Minute,
//	})
//
//	retry := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 100 * time.Millisecond,
//	    Multiplier:   2.0,
//	})
//
//	cb := breakers.Get("billing.charge")
//	err := cb.Execute(ctx, func(ctx context.Context) error {
//	    return retry.Execute(ctx, chargeCard)
//	})
//
// Ordered composition of these primitives around a protected operation is
// the job of the middleware package; this package only supplies the pieces.
package resilience
