package fault

import (
	"fmt"
	"time"
)

// Kind is the normalized category of a failure.
type Kind int

const (
	// Validation means the request was malformed or failed a domain check.
	Validation Kind = iota
	// NotFound means the addressed resource does not exist.
	NotFound
	// Conflict means the request collides with existing state.
	Conflict
	// Forbidden means the principal may not perform the operation.
	Forbidden
	// RateLimited means the principal exhausted its request quota.
	RateLimited
	// Unavailable means a dependency is unreachable or shedding load.
	Unavailable
	// Internal means an unexpected server-side failure.
	Internal
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case Forbidden:
		return "forbidden"
	case RateLimited:
		return "rate_limited"
	case Unavailable:
		return "unavailable"
	case Internal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a normalized failure. It is immutable once produced: callers
// receive it fully populated and must not mutate it.
type Error struct {
	// Kind is the normalized category.
	Kind Kind

	// Message is the outward-facing description. For Internal faults this is
	// a generic message unless the classifier runs in debug mode.
	Message string

	// Field names the offending input field, when derivable.
	Field string

	// RetryAfter is how long the caller should wait before retrying.
	// Only set for RateLimited and some Unavailable faults.
	RetryAfter time.Duration

	// CorrelationID joins this failure across logs and client responses.
	CorrelationID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Retryable reports whether retrying the failed operation can plausibly
// succeed. Only the transient categories, Unavailable and Internal, qualify;
// client-correctable kinds never do. resilience.DefaultRetryIf consults this
// method, so a fault flows through a bare Retry with the same policy the
// composed guard applies.
func (e *Error) Retryable() bool {
	return e.Kind == Unavailable || e.Kind == Internal
}

// RetryAfterSeconds returns the retry-after hint rounded up to whole seconds,
// or 0 when no hint is set.
func (e *Error) RetryAfterSeconds() int {
	if e.RetryAfter <= 0 {
		return 0
	}
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// NewValidation creates a Validation fault for the given field.
func NewValidation(field, msg string) *Error {
	return &Error{Kind: Validation, Field: field, Message: msg}
}

// NewNotFound creates a NotFound fault for the named resource.
func NewNotFound(resource string) *Error {
	return &Error{Kind: NotFound, Message: resource + " not found"}
}

// NewConflict creates a Conflict fault. field may be empty when the
// conflicting column is not derivable.
func NewConflict(field, msg string) *Error {
	return &Error{Kind: Conflict, Field: field, Message: msg}
}

// NewForbidden creates a Forbidden fault.
func NewForbidden(msg string) *Error {
	return &Error{Kind: Forbidden, Message: msg}
}
