package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStoreConfig configures the in-process store.
type MemoryStoreConfig struct {
	// SweepInterval is how often expired entries are removed to bound
	// memory. Default: 60 seconds.
	SweepInterval time.Duration

	// Now supplies the current time. Override in tests.
	// Default: time.Now
	Now func() time.Time
}

// MemoryStore is a fixed-window counter map for a single process.
//
// All entry mutation, foreground and sweep alike, happens under one mutex,
// so increments never race with expiry.
type MemoryStore struct {
	config MemoryStoreConfig

	mu      sync.Mutex
	entries map[string]*windowEntry

	stop     chan struct{}
	stopOnce sync.Once
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

// NewMemoryStore creates an in-process store and starts its sweep goroutine.
// Call Close to stop the sweep.
func NewMemoryStore(config MemoryStoreConfig) *MemoryStore {
	// Apply defaults
	if config.SweepInterval <= 0 {
		config.SweepInterval = 60 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	s := &MemoryStore{
		config:  config,
		entries: make(map[string]*windowEntry),
		stop:    make(chan struct{}),
	}

	go s.sweepLoop()

	return s
}

// Allow consumes one unit of the key's quota. A fresh or expired window
// starts at count 1; a full window denies without incrementing.
func (s *MemoryStore) Allow(_ context.Context, key Key, policy Policy) (Decision, error) {
	now := s.config.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	if !ok || !entry.resetAt.After(now) {
		entry = &windowEntry{count: 1, resetAt: now.Add(policy.Window)}
		s.entries[key.String()] = entry
		return Decision{Allowed: true, Remaining: policy.Max - 1, ResetAt: entry.resetAt}, nil
	}

	if entry.count < policy.Max {
		entry.count++
		return Decision{Allowed: true, Remaining: policy.Max - entry.count, ResetAt: entry.resetAt}, nil
	}

	return Decision{Allowed: false, Remaining: 0, ResetAt: entry.resetAt}, nil
}

// Remaining reports the key's quota without consuming it.
func (s *MemoryStore) Remaining(_ context.Context, key Key, policy Policy) (Decision, error) {
	now := s.config.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key.String()]
	if !ok || !entry.resetAt.After(now) {
		return Decision{Allowed: true, Remaining: policy.Max, ResetAt: now.Add(policy.Window)}, nil
	}

	remaining := policy.Max - entry.count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: remaining > 0, Remaining: remaining, ResetAt: entry.resetAt}, nil
}

// Clear drops all counters.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = make(map[string]*windowEntry)
	s.mu.Unlock()
	return nil
}

// Close stops the sweep goroutine. Idempotent.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

// Len returns the number of live entries. Intended for tests and metrics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.config.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, entry := range s.entries {
		if !entry.resetAt.After(now) {
			delete(s.entries, k)
		}
	}
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
