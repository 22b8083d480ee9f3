// Package middleware composes resilience concerns around protected
// operations.
//
// Composition is explicit and ordered: a Handler is wrapped by a list of
// Middleware at registration time, each wrapper owning exactly one
// responsibility (rate limiting, circuit breaking, retry, bulkhead, audit,
// error classification). There is no annotation-driven implicit wrapping
// and no package-level state; every store, registry, and classifier is
// injected.
//
//	guard := middleware.NewGuard(middleware.GuardConfig{
//	    Limiter: ratelimit.NewLimiter(store, ratelimit.LimiterConfig{}),
//	})
//
//	handler := guard.Protect(createClient)
//
//	result, err := handler(ctx, middleware.Request{
//	    PrincipalID: "u1",
//	    Operation:   "createClient",
//	    Class:       ratelimit.ClassNormal,
//	})
//
// On failure the returned error is always a *fault.Error: denials carry
// retry-after guidance, downstream outages surface as Unavailable, and
// anything unrecognized becomes Internal with a correlation id and a
// server-side log entry.
package middleware
