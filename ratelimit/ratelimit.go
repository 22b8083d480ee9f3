package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for limiter operations.
var (
	// ErrBackendUnavailable is returned by a fail-closed distributed store
	// when the counter backend cannot be reached.
	ErrBackendUnavailable = errors.New("ratelimit: counter backend unavailable")
)

// Key addresses exactly one counter: the (principal, operation) pair.
type Key struct {
	Principal string
	Operation string
}

// String returns the canonical key form. It depends only on the pair, so
// every process composing the same principal and operation addresses the
// same shared counter.
func (k Key) String() string {
	return k.Principal + ":" + k.Operation
}

// Policy is the immutable quota for one operation class.
type Policy struct {
	// Window is the quota window duration.
	Window time.Duration

	// Max is the number of requests allowed per window.
	Max int
}

// Class selects a rate-limit policy for an operation.
type Class int

const (
	// ClassNormal covers ordinary CRUD operations.
	ClassNormal Class = iota
	// ClassExpensive covers reports and bulk operations.
	ClassExpensive
	// ClassUpload covers file uploads.
	ClassUpload
	// ClassAuth covers credential-bearing operations.
	ClassAuth
)

// String returns the string representation of the class.
func (c Class) String() string {
	switch c {
	case ClassNormal:
		return "normal"
	case ClassExpensive:
		return "expensive"
	case ClassUpload:
		return "upload"
	case ClassAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// DefaultPolicies returns the default policy table. Auth uses the strict
// 15-minute profile: auth endpoints are the credential-guessing surface.
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassNormal:    {Window: 60 * time.Second, Max: 100},
		ClassExpensive: {Window: 60 * time.Second, Max: 10},
		ClassUpload:    {Window: 60 * time.Second, Max: 20},
		ClassAuth:      {Window: 900 * time.Second, Max: 5},
	}
}

// Decision is the outcome of consulting a quota.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is how many further requests the window admits.
	Remaining int

	// ResetAt is when the current window expires.
	ResetAt time.Time
}

// RetryAfter returns how long the caller should wait before retrying,
// never negative.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.IsZero() {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// DeniedError is returned when a quota rejects a request.
type DeniedError struct {
	// Key is the exhausted counter.
	Key Key

	// After is the suggested wait before retrying.
	After time.Duration
}

// Error returns a human-readable message with the wait in whole seconds.
func (e *DeniedError) Error() string {
	secs := int((e.After + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return fmt.Sprintf("ratelimit: quota exceeded for %s, retry in %ds", e.Key, secs)
}

// RetryAfter returns the suggested wait before retrying.
func (e *DeniedError) RetryAfter() time.Duration {
	return e.After
}

// Retryable reports false: an immediate retry burns quota against the same
// exhausted window. Callers should wait RetryAfter instead.
func (e *DeniedError) Retryable() bool {
	return false
}

// Store is the limiter backend contract. Call sites depend only on this
// interface, so the in-process and distributed backends are substitutable
// without changing them.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use, and a
//   counter check-and-increment must be atomic per key.
// - Context: Allow and Remaining must honor cancellation; in-process
//   implementations never suspend mid-mutation.
type Store interface {
	// Allow consumes one unit of the key's quota if available. The decision
	// reports the outcome; the counter is not incremented on denial paths
	// where the backend supports it.
	Allow(ctx context.Context, key Key, policy Policy) (Decision, error)

	// Remaining reports the key's quota without consuming it.
	Remaining(ctx context.Context, key Key, policy Policy) (Decision, error)

	// Clear drops all counters.
	Clear(ctx context.Context) error

	// Close releases backend resources and stops background sweeps.
	Close() error
}
