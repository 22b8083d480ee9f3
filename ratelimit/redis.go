package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/guardrail/observe"
)

// FailMode selects what a distributed store does when its backend fails.
type FailMode int

const (
	// FailOpen admits the request when the backend is unreachable,
	// prioritizing availability of the protected system over strict
	// enforcement.
	FailOpen FailMode = iota
	// FailClosed rejects the request when the backend is unreachable.
	FailClosed
)

// String returns the string representation of the fail mode.
func (m FailMode) String() string {
	switch m {
	case FailOpen:
		return "open"
	case FailClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Counter is the atomic counter service behind the sliding window. It is an
// interface so the window math and failure handling are testable without a
// live backend.
type Counter interface {
	// Bump increments the current sub-window, sets its expiry, and returns
	// both sub-window counts. The returned cur includes this increment.
	Bump(ctx context.Context, curKey, prevKey string, ttl time.Duration) (cur, prev int64, err error)

	// Peek returns both sub-window counts without incrementing.
	Peek(ctx context.Context, curKey, prevKey string) (cur, prev int64, err error)

	// Clear drops all counters owned by this counter.
	Clear(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// RedisStoreConfig configures the distributed store.
type RedisStoreConfig struct {
	// FailMode selects behavior on backend failure.
	// Default: FailOpen
	FailMode FailMode

	// CallTimeout bounds each backend call independently of the caller's
	// deadline, so a slow backend never delays the fail-open path.
	// Default: 250ms
	CallTimeout time.Duration

	// Logger records fail-open events.
	// Default: a no-op logger.
	Logger observe.Logger

	// Now supplies the current time. Override in tests.
	// Default: time.Now
	Now func() time.Time
}

// RedisStore estimates a sliding window from two adjacent fixed
// sub-windows: the current sub-window count plus the previous one weighted
// by its unexpired fraction. Tighter than naive fixed-window counting while
// staying O(1) per key.
type RedisStore struct {
	counter Counter
	config  RedisStoreConfig
}

// NewRedisStore creates a distributed store over the given counter.
func NewRedisStore(counter Counter, config RedisStoreConfig) *RedisStore {
	// Apply defaults
	if config.CallTimeout <= 0 {
		config.CallTimeout = 250 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &RedisStore{
		counter: counter,
		config:  config,
	}
}

// Allow consumes one unit of the key's quota. Denied requests still count
// toward the current sub-window, keeping pressure on the estimate.
func (s *RedisStore) Allow(ctx context.Context, key Key, policy Policy) (Decision, error) {
	now := s.config.Now()
	curStart := now.Truncate(policy.Window)
	curKey, prevKey := windowKeys(key, curStart, policy.Window)

	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()

	cur, prev, err := s.counter.Bump(callCtx, curKey, prevKey, 2*policy.Window)
	if err != nil {
		return s.failDecision(ctx, key, err)
	}

	resetAt := curStart.Add(policy.Window)
	est := slidingEstimate(cur, prev, now, curStart, policy.Window)
	if est > float64(policy.Max) {
		return Decision{Allowed: false, Remaining: 0, ResetAt: resetAt}, nil
	}

	remaining := policy.Max - int(est)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}

// Remaining reports the key's quota without consuming it.
func (s *RedisStore) Remaining(ctx context.Context, key Key, policy Policy) (Decision, error) {
	now := s.config.Now()
	curStart := now.Truncate(policy.Window)
	curKey, prevKey := windowKeys(key, curStart, policy.Window)

	callCtx, cancel := context.WithTimeout(ctx, s.config.CallTimeout)
	defer cancel()

	cur, prev, err := s.counter.Peek(callCtx, curKey, prevKey)
	if err != nil {
		return s.failDecision(ctx, key, err)
	}

	resetAt := curStart.Add(policy.Window)
	est := slidingEstimate(cur, prev, now, curStart, policy.Window)
	remaining := policy.Max - int(est)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: remaining > 0, Remaining: remaining, ResetAt: resetAt}, nil
}

// Clear drops all counters.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.counter.Clear(ctx)
}

// Close releases the backend connection.
func (s *RedisStore) Close() error {
	return s.counter.Close()
}

// failDecision resolves a backend failure per the configured FailMode. On
// the fail-open path no counter was read, so Remaining and ResetAt are left
// zero; only Allowed is meaningful.
func (s *RedisStore) failDecision(ctx context.Context, key Key, err error) (Decision, error) {
	if s.config.FailMode == FailClosed {
		return Decision{Allowed: false}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	s.config.Logger.Warn(ctx, "rate limit backend unavailable, failing open",
		observe.Field{Key: "key", Value: key.String()},
		observe.Field{Key: "error", Value: err.Error()},
	)
	return Decision{Allowed: true}, nil
}

// slidingEstimate weights the previous sub-window by how much of it still
// overlaps the moving window.
func slidingEstimate(cur, prev int64, now, curStart time.Time, window time.Duration) float64 {
	elapsed := float64(now.Sub(curStart)) / float64(window)
	return float64(cur) + float64(prev)*(1-elapsed)
}

func windowKeys(key Key, curStart time.Time, window time.Duration) (string, string) {
	cur := key.String() + ":" + strconv.FormatInt(curStart.Unix(), 10)
	prev := key.String() + ":" + strconv.FormatInt(curStart.Add(-window).Unix(), 10)
	return cur, prev
}

// RedisCounter implements Counter over a Redis client. All mutations for
// one decision go through a single transactional pipeline.
type RedisCounter struct {
	client *redis.Client
	prefix string
}

// NewRedisCounter creates a counter with the given key prefix.
// An empty prefix defaults to "guardrail:rl:".
func NewRedisCounter(client *redis.Client, prefix string) *RedisCounter {
	if prefix == "" {
		prefix = "guardrail:rl:"
	}
	return &RedisCounter{client: client, prefix: prefix}
}

// Bump increments the current sub-window and reads the previous one.
func (c *RedisCounter) Bump(ctx context.Context, curKey, prevKey string, ttl time.Duration) (int64, int64, error) {
	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, c.prefix+curKey)
	pipe.Expire(ctx, c.prefix+curKey, ttl)
	prevCmd := pipe.Get(ctx, c.prefix+prevKey)

	// A missing previous sub-window surfaces as redis.Nil; that is a zero
	// count, not a failure.
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}

	prev, err := prevCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	return incr.Val(), prev, nil
}

// Peek reads both sub-windows without incrementing.
func (c *RedisCounter) Peek(ctx context.Context, curKey, prevKey string) (int64, int64, error) {
	pipe := c.client.TxPipeline()
	curCmd := pipe.Get(ctx, c.prefix+curKey)
	prevCmd := pipe.Get(ctx, c.prefix+prevKey)

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}

	cur, err := curCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	prev, err := prevCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, err
	}
	return cur, prev, nil
}

// Clear deletes every key under this counter's prefix.
func (c *RedisCounter) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close closes the Redis client.
func (c *RedisCounter) Close() error {
	return c.client.Close()
}

// Ping checks backend liveness.
func (c *RedisCounter) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// Ensure RedisCounter implements Counter
var _ Counter = (*RedisCounter)(nil)
