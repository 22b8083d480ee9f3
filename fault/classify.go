package fault

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/jonwraymond/guardrail/ratelimit"
	"github.com/jonwraymond/guardrail/resilience"
)

// Postgres error codes the classifier recognizes.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// ClassifierConfig configures a Classifier.
type ClassifierConfig struct {
	// Debug includes the raw error text in outward Internal messages.
	// Default: false (raw text is log-only).
	Debug bool

	// NewID generates correlation ids.
	// Default: uuid.NewString.
	NewID func() string
}

// Classifier maps raw errors into normalized faults.
type Classifier struct {
	config ClassifierConfig
}

// NewClassifier creates a new classifier.
func NewClassifier(config ClassifierConfig) *Classifier {
	// Apply defaults
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}

	return &Classifier{config: config}
}

// Option adjusts a single classification.
type Option func(*Error)

// WithCorrelationID supplies a correlation id instead of generating one.
func WithCorrelationID(id string) Option {
	return func(e *Error) {
		if id != "" {
			e.CorrelationID = id
		}
	}
}

// Classify maps err into a normalized fault. Rules are ordered, first match
// wins. A correlation id is always attached (generated if absent).
func (c *Classifier) Classify(err error, opts ...Option) *Error {
	e := c.classify(err)

	for _, opt := range opts {
		opt(e)
	}
	if e.CorrelationID == "" {
		e.CorrelationID = c.config.NewID()
	}
	return e
}

func (c *Classifier) classify(err error) *Error {
	// Rule 1: already normalized, pass through unchanged.
	var fe *Error
	if errors.As(err, &fe) {
		out := *fe
		return &out
	}

	// Rules 2-3: storage constraint violations are client-correctable.
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return &Error{
				Kind:    Conflict,
				Message: "record already exists",
				Field:   fieldFromConstraint(pqErr),
			}
		case pqForeignKeyViolation:
			return &Error{
				Kind:    Validation,
				Message: "references a record that does not exist",
				Field:   fieldFromConstraint(pqErr),
			}
		}
	}

	// Rule 4: rate-limiter denial carries retry guidance.
	var denied *ratelimit.DeniedError
	if errors.As(err, &denied) {
		return &Error{
			Kind:       RateLimited,
			Message:    denied.Error(),
			RetryAfter: denied.RetryAfter(),
		}
	}
	if errors.Is(err, resilience.ErrRateLimitExceeded) {
		return &Error{Kind: RateLimited, Message: "rate limit exceeded"}
	}

	// Rule 5: load shedding.
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return &Error{Kind: Unavailable, Message: "service temporarily unavailable"}
	}
	if errors.Is(err, resilience.ErrBulkheadFull) {
		return &Error{Kind: Unavailable, Message: "service at capacity"}
	}
	if errors.Is(err, ratelimit.ErrBackendUnavailable) {
		return &Error{Kind: Unavailable, Message: "service temporarily unavailable"}
	}

	// Rule 6: timeouts.
	if errors.Is(err, resilience.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: Unavailable, Message: "operation timed out"}
	}

	// Rule 7: everything else is Internal. The raw text stays out of the
	// outward message unless debug mode is on; callers log it keyed by the
	// correlation id.
	msg := "internal error"
	if c.config.Debug && err != nil {
		msg = err.Error()
	}
	return &Error{Kind: Internal, Message: msg}
}

// Retryable is the default retry predicate: only transient conditions
// (timeouts, connection resets, internal/server faults) are retryable.
// Validation, NotFound, Conflict, Forbidden and RateLimited never are,
// nor are circuit-open rejections or caller cancellation.
func Retryable(err error) bool {
	if err == nil {
		return false
	}

	// Caller is gone or out of time; retrying cannot help.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// The breaker will keep rejecting until its cooldown elapses.
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return false
	}

	var fe *Error
	if errors.As(err, &fe) {
		return fe.Retryable()
	}

	var denied *ratelimit.DeniedError
	if errors.As(err, &denied) {
		return false
	}
	if errors.Is(err, resilience.ErrRateLimitExceeded) {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation, pqForeignKeyViolation:
			return false
		}
	}

	// Operation-level timeouts and connection resets are transient.
	if errors.Is(err, resilience.ErrTimeout) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	// Unrecognized errors classify as Internal, which is a transient
	// category under the default policy.
	return true
}

// fieldFromConstraint derives a field name from a Postgres constraint.
// Constraint names follow the <table>_<column>_{key,fkey} convention; when
// that fails the column reported by the driver is used, else empty.
func fieldFromConstraint(pqErr *pq.Error) string {
	if pqErr.Column != "" {
		return pqErr.Column
	}

	name := pqErr.Constraint
	if name == "" {
		return ""
	}
	for _, suffix := range []string{"_key", "_fkey", "_unique", "_idx"} {
		name = strings.TrimSuffix(name, suffix)
	}
	if pqErr.Table != "" {
		name = strings.TrimPrefix(name, pqErr.Table+"_")
	} else if i := strings.LastIndex(name, "_"); i >= 0 {
		// Without the table name the leading tokens are ambiguous; keep
		// the last one, which names the column by convention.
		name = name[i+1:]
	}
	return name
}
