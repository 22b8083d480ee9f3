package resilience

import "sync"

// Registry holds one circuit breaker per protected call site, created
// lazily on first use and kept for the registry's lifetime.
//
// It is an explicit object owned by whoever composes the middleware, not a
// package-level singleton, so tests get isolated instances and two
// registries never share state.
type Registry struct {
	config CircuitBreakerConfig
	hook   func(name string, from, to State)

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a registry whose breakers all share config.
func NewRegistry(config CircuitBreakerConfig) *Registry {
	return &Registry{
		config:   config,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// NewRegistryWithHook creates a registry that calls hook on every state
// change of any of its breakers, tagged with the call-site name.
func NewRegistryWithHook(config CircuitBreakerConfig, hook func(name string, from, to State)) *Registry {
	r := NewRegistry(config)
	r.hook = hook
	return r
}

// Get returns the breaker for the named call site, creating it on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	cb, ok := r.breakers[name]
	if !ok {
		config := r.config
		if r.hook != nil {
			prev := config.OnStateChange
			config.OnStateChange = func(from, to State) {
				if prev != nil {
					prev(from, to)
				}
				r.hook(name, from, to)
			}
		}
		cb = NewCircuitBreaker(config)
		r.breakers[name] = cb
	}
	return cb
}

// Names returns the call sites with a breaker, in no particular order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	return names
}

// ResetAll forces every breaker back to closed.
func (r *Registry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cb := range r.breakers {
		cb.Reset()
	}
}
