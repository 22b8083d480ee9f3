package ratelimit

import (
	"os"
	"regexp"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/guardrail/observe"
)

// Config selects and configures a limiter backend.
type Config struct {
	// RedisAddr is the shared counter endpoint. When empty (after env
	// expansion) the single-process MemoryStore is selected; this is a
	// deterministic fallback, never a startup error.
	RedisAddr string

	// RedisPassword is the backend credential. Supports ${VAR} expansion.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// FailMode selects distributed-backend failure behavior.
	// Default: FailOpen
	FailMode FailMode

	// CallTimeout bounds each distributed backend call.
	// Default: 250ms
	CallTimeout time.Duration

	// SweepInterval is the in-process store's expiry sweep interval.
	// Default: 60 seconds
	SweepInterval time.Duration

	// KeyPrefix namespaces distributed counters.
	// Default: "guardrail:rl:"
	KeyPrefix string
}

// NewStore builds the backend the config selects. logger may be nil.
func NewStore(config Config, logger observe.Logger) Store {
	addr := expandEnv(config.RedisAddr)
	if addr == "" {
		return NewMemoryStore(MemoryStoreConfig{
			SweepInterval: config.SweepInterval,
		})
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: expandEnv(config.RedisPassword),
		DB:       config.RedisDB,
	})

	return NewRedisStore(NewRedisCounter(client, config.KeyPrefix), RedisStoreConfig{
		FailMode:    config.FailMode,
		CallTimeout: config.CallTimeout,
		Logger:      logger,
	})
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} placeholders with environment values. Unset
// variables expand to the empty string, which for RedisAddr deterministically
// selects the in-process backend.
func expandEnv(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}
