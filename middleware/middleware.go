package middleware

import (
	"context"

	"github.com/jonwraymond/guardrail/observe"
	"github.com/jonwraymond/guardrail/ratelimit"
)

// Request identifies one call into a protected operation.
type Request struct {
	// PrincipalID is the identity the call is attributed to.
	PrincipalID string

	// Operation is the protected operation name, e.g. "createClient".
	Operation string

	// Class selects the rate-limit policy for the operation.
	Class ratelimit.Class
}

// Meta returns the telemetry metadata for this request.
func (r Request) Meta() observe.OpMeta {
	return observe.OpMeta{
		Principal: r.PrincipalID,
		Operation: r.Operation,
		Class:     r.Class.String(),
	}
}

// Handler is a protected unit of work.
type Handler func(ctx context.Context, req Request) (any, error)

// Middleware wraps a Handler with one cross-cutting responsibility.
type Middleware func(next Handler) Handler

// Chain applies middlewares around h in declared order: the first listed
// is outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
