package middleware

import (
	"context"

	"github.com/jonwraymond/guardrail/fault"
	"github.com/jonwraymond/guardrail/observe"
	"github.com/jonwraymond/guardrail/ratelimit"
	"github.com/jonwraymond/guardrail/resilience"
)

// GuardConfig configures a Guard. Every zero field gets a working default,
// so the zero config yields a fully functional single-process guard.
type GuardConfig struct {
	// Limiter gates every call.
	// Default: a limiter over an in-process store with default policies.
	Limiter *ratelimit.Limiter

	// Breakers holds the per-operation circuit breakers.
	// Default: a registry with default breaker config whose IsFailure only
	// counts transient errors, so domain errors (validation, not-found)
	// never trip a breaker.
	Breakers *resilience.Registry

	// Retry is the retry policy applied inside the breaker.
	// Default: 3 attempts, 100ms initial delay, doubling, retrying only
	// transient errors. Set Retry to a policy with MaxAttempts 1 to
	// disable retrying.
	Retry *resilience.Retry

	// Classifier normalizes boundary errors.
	// Default: a non-debug classifier.
	Classifier *fault.Classifier

	// Logger, Metrics, Tracer receive audit telemetry.
	// Default: no-ops.
	Logger  observe.Logger
	Metrics observe.Metrics
	Tracer  observe.Tracer
}

// Guard owns the composed middleware stack for protected operations. All
// state (limiter store, breaker registry) is explicit and injected; two
// guards never share counters unless given the same store.
type Guard struct {
	config GuardConfig
}

// NewGuard creates a guard, applying defaults for unset config fields.
func NewGuard(config GuardConfig) *Guard {
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NopMetrics()
	}
	if config.Tracer == nil {
		config.Tracer = observe.NopTracer()
	}
	if config.Limiter == nil {
		store := ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{})
		config.Limiter = ratelimit.NewLimiter(store, ratelimit.LimiterConfig{})
	}
	if config.Breakers == nil {
		metrics := config.Metrics
		config.Breakers = resilience.NewRegistryWithHook(
			resilience.CircuitBreakerConfig{
				IsFailure: fault.Retryable,
			},
			func(name string, from, to resilience.State) {
				metrics.RecordBreakerTransition(context.Background(), name, from.String(), to.String())
			},
		)
	}
	if config.Retry == nil {
		config.Retry = resilience.NewRetry(resilience.RetryConfig{
			RetryIf: fault.Retryable,
		})
	}
	if config.Classifier == nil {
		config.Classifier = fault.NewClassifier(fault.ClassifierConfig{})
	}

	return &Guard{config: config}
}

// Protect composes the full stack around h. Order, outermost first:
// classification, audit, rate limit, circuit breaker, retry, then extra
// wrappers, then h itself.
func (g *Guard) Protect(h Handler, extra ...Middleware) Handler {
	mws := []Middleware{
		Classify(g.config.Classifier, g.config.Logger),
		Audit(g.config.Tracer, g.config.Metrics, g.config.Logger),
		RateLimit(g.config.Limiter),
		CircuitBreak(g.config.Breakers),
		Retry(g.config.Retry, g.config.Metrics),
	}
	mws = append(mws, extra...)
	return Chain(h, mws...)
}

// Execute runs one zero-argument unit of work under the guard: it either
// returns the operation's result or a *fault.Error.
func (g *Guard) Execute(ctx context.Context, req Request, op func(context.Context) (any, error)) (any, error) {
	h := g.Protect(func(ctx context.Context, _ Request) (any, error) {
		return op(ctx)
	})
	return h(ctx, req)
}

// Limiter returns the guard's limiter.
func (g *Guard) Limiter() *ratelimit.Limiter {
	return g.config.Limiter
}

// Breakers returns the guard's breaker registry.
func (g *Guard) Breakers() *resilience.Registry {
	return g.config.Breakers
}
