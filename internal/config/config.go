package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds service configuration sourced from environment variables.
// It is built once at startup and never mutated afterwards.
type Config struct {
	IngestAddr string

	// BearerSecret is the single API credential. Empty disables
	// authentication (local development only).
	BearerSecret string

	KafkaBrokers []string
	KafkaTopic   string
	MockSink     bool

	DedupBackend string // "memory" or "redis"
	RedisAddr    string
	// DedupTTL is the retention horizon for seen event IDs. Zero keeps
	// entries for the lifetime of the process.
	DedupTTL time.Duration

	DeliveryMaxAttempts    int
	DeliveryAttemptTimeout time.Duration
	DeliveryBackoff        time.Duration

	LogLevel string
}

// Load parses process environment variables into a Config struct, applying defaults when unset.
func Load() (Config, error) {
	cfg := Config{
		IngestAddr:             getenv("INGEST_ADDR", ":8080"),
		BearerSecret:           os.Getenv("EVENT_API_KEY"),
		KafkaBrokers:           splitAndTrim(getenv("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:             getenv("KAFKA_TOPIC", "game-events"),
		MockSink:               boolDefault("MOCK_SINK", false),
		DedupBackend:           getenv("DEDUP_BACKEND", "memory"),
		RedisAddr:              getenv("REDIS_ADDR", "localhost:6379"),
		DedupTTL:               durationDefault("DEDUP_TTL_MS", 0),
		DeliveryMaxAttempts:    atoiDefault("DELIVERY_MAX_ATTEMPTS", 3),
		DeliveryAttemptTimeout: durationDefault("DELIVERY_ATTEMPT_TIMEOUT_MS", 5000),
		DeliveryBackoff:        durationDefault("DELIVERY_BACKOFF_MS", 200),
		LogLevel:               getenv("LOG_LEVEL", "info"),
	}

	switch cfg.DedupBackend {
	case "memory", "redis":
	default:
		return Config{}, fmt.Errorf("DEDUP_BACKEND must be memory or redis, got %q", cfg.DedupBackend)
	}
	if cfg.DeliveryMaxAttempts < 1 {
		return Config{}, fmt.Errorf("DELIVERY_MAX_ATTEMPTS must be at least 1")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func boolDefault(key string, def bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func atoiDefault(key string, def int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func durationDefault(key string, defMS int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(defMS) * time.Millisecond
}
