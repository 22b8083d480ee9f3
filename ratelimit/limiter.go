package ratelimit

import (
	"context"
	"time"
)

// LimiterConfig configures a Limiter.
type LimiterConfig struct {
	// Policies maps operation classes to quotas.
	// Default: DefaultPolicies()
	Policies map[Class]Policy

	// Now supplies the current time. Override in tests.
	// Default: time.Now
	Now func() time.Time
}

// Limiter applies the class policy table through a Store. It owns no
// global state: the store is injected, so isolated instances never share
// counters.
type Limiter struct {
	store  Store
	config LimiterConfig
}

// NewLimiter creates a limiter over the given store.
func NewLimiter(store Store, config LimiterConfig) *Limiter {
	// Apply defaults
	if config.Policies == nil {
		config.Policies = DefaultPolicies()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Limiter{store: store, config: config}
}

// Check consumes one unit of quota for the principal and operation. A
// denial returns a *DeniedError carrying retry-after guidance; any other
// error is a backend failure surfaced by a fail-closed store.
func (l *Limiter) Check(ctx context.Context, principal, operation string, class Class) (Decision, error) {
	key := Key{Principal: principal, Operation: operation}
	policy := l.policyFor(class)

	d, err := l.store.Allow(ctx, key, policy)
	if err != nil {
		return d, err
	}
	if !d.Allowed {
		return d, &DeniedError{Key: key, After: d.RetryAfter(l.config.Now())}
	}
	return d, nil
}

// Remaining reports quota for the principal and operation without
// consuming it.
func (l *Limiter) Remaining(ctx context.Context, principal, operation string, class Class) (Decision, error) {
	key := Key{Principal: principal, Operation: operation}
	return l.store.Remaining(ctx, key, l.policyFor(class))
}

// Store returns the underlying store.
func (l *Limiter) Store() Store {
	return l.store
}

func (l *Limiter) policyFor(class Class) Policy {
	if p, ok := l.config.Policies[class]; ok {
		return p
	}
	return DefaultPolicies()[ClassNormal]
}
