package ratelimit

import (
	"testing"
	"time"
)

func TestNewStore_EmptyAddrSelectsMemory(t *testing.T) {
	s := NewStore(Config{}, nil)
	defer s.Close()

	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("store = %T, want *MemoryStore", s)
	}
}

func TestNewStore_UnsetEnvFallsBackToMemory(t *testing.T) {
	// ${GUARDRAIL_REDIS_ADDR} is unset, so the address expands to empty and
	// the single-process backend is selected without error.
	s := NewStore(Config{RedisAddr: "${GUARDRAIL_REDIS_ADDR}"}, nil)
	defer s.Close()

	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("store = %T, want *MemoryStore", s)
	}
}

func TestNewStore_AddrSelectsRedis(t *testing.T) {
	s := NewStore(Config{
		RedisAddr:   "localhost:6379",
		FailMode:    FailClosed,
		CallTimeout: 500 * time.Millisecond,
	}, nil)
	defer s.Close()

	rs, ok := s.(*RedisStore)
	if !ok {
		t.Fatalf("store = %T, want *RedisStore", s)
	}
	if rs.config.FailMode != FailClosed {
		t.Errorf("FailMode = %v, want FailClosed", rs.config.FailMode)
	}
	if rs.config.CallTimeout != 500*time.Millisecond {
		t.Errorf("CallTimeout = %v, want 500ms", rs.config.CallTimeout)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("GUARDRAIL_TEST_HOST", "redis.internal")
	t.Setenv("GUARDRAIL_TEST_PORT", "6380")

	tests := []struct {
		in   string
		want string
	}{
		{"${GUARDRAIL_TEST_HOST}:${GUARDRAIL_TEST_PORT}", "redis.internal:6380"},
		{"plain-addr:6379", "plain-addr:6379"},
		{"${GUARDRAIL_TEST_UNSET}", ""},
		{"", ""},
		{"$GUARDRAIL_TEST_HOST", "$GUARDRAIL_TEST_HOST"},
	}

	for _, tt := range tests {
		if got := expandEnv(tt.in); got != tt.want {
			t.Errorf("expandEnv(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
