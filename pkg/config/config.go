// Package config loads and validates the environment-driven service
// configuration: HTTP surface, logging, cache backend, provider endpoint,
// transformer mode, governance tuning, auth, and feature toggles.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dansasser/mcg-agent/pkg/provider"
)

// CacheBackend selects the request-level cache implementation.
type CacheBackend string

const (
	CacheBackendNone   CacheBackend = "none"
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// IsValid checks if the cache backend is known (empty means none).
func (b CacheBackend) IsValid() bool {
	switch b {
	case "", CacheBackendNone, CacheBackendMemory, CacheBackendRedis:
		return true
	default:
		return false
	}
}

// HTTPConfig holds the server surface settings.
type HTTPConfig struct {
	Port    string
	GinMode string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // text | json
}

// CacheConfig holds request-cache settings.
type CacheConfig struct {
	Backend       CacheBackend
	TTL           time.Duration
	MaxItems      int
	Compress      bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTLS      bool
}

// ProviderConfig holds the external chat-completions endpoint settings.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Enabled reports whether an external provider is configured.
func (p ProviderConfig) Enabled() bool { return p.APIKey != "" }

// GovernanceConfig tunes the enforcer.
type GovernanceConfig struct {
	CorpusRateLimit int
	TaskRetention   time.Duration
}

// AuthConfig holds bearer-token verification settings.
type AuthConfig struct {
	JWTSecret string
	Algorithm string
	Expiry    time.Duration
}

// FeatureFlags gates optional behavior.
type FeatureFlags struct {
	ResponseOptimizer bool
}

// Config is the full service configuration.
type Config struct {
	HTTP        HTTPConfig
	Log         LogConfig
	Cache       CacheConfig
	Provider    ProviderConfig
	Transformer provider.TransformerMode
	Governance  GovernanceConfig
	Auth        AuthConfig
	Features    FeatureFlags
}

// LoadFromEnv reads and validates configuration from the environment.
func LoadFromEnv() (Config, error) {
	cacheTTL, err := time.ParseDuration(envOrDefault("CACHE_TTL", "90s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	maxItems, err := strconv.Atoi(envOrDefault("CACHE_MAX_ITEMS", "1024"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid CACHE_MAX_ITEMS: %w", err)
	}
	redisDB, err := strconv.Atoi(envOrDefault("REDIS_DB", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	providerTimeout, err := time.ParseDuration(envOrDefault("PROVIDER_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PROVIDER_TIMEOUT: %w", err)
	}
	rateLimit, err := strconv.Atoi(envOrDefault("GOVERNANCE_CORPUS_RATE_LIMIT", "10"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid GOVERNANCE_CORPUS_RATE_LIMIT: %w", err)
	}
	retention, err := time.ParseDuration(envOrDefault("GOVERNANCE_TASK_RETENTION", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid GOVERNANCE_TASK_RETENTION: %w", err)
	}
	jwtExpiry, err := time.ParseDuration(envOrDefault("JWT_EXPIRY", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid JWT_EXPIRY: %w", err)
	}

	cfg := Config{
		HTTP: HTTPConfig{
			Port:    envOrDefault("HTTP_PORT", "8080"),
			GinMode: envOrDefault("GIN_MODE", "release"),
		},
		Log: LogConfig{
			Level:  envOrDefault("LOG_LEVEL", "info"),
			Format: envOrDefault("LOG_FORMAT", "json"),
		},
		Cache: CacheConfig{
			Backend:       CacheBackend(envOrDefault("CACHE_BACKEND", "none")),
			TTL:           cacheTTL,
			MaxItems:      maxItems,
			Compress:      envBool("CACHE_COMPRESS", false),
			RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       redisDB,
			RedisTLS:      envBool("REDIS_TLS", false),
		},
		Provider: ProviderConfig{
			BaseURL: os.Getenv("PROVIDER_BASE_URL"),
			APIKey:  os.Getenv("PROVIDER_API_KEY"),
			Model:   envOrDefault("PROVIDER_MODEL", "gpt-4o-mini"),
			Timeout: providerTimeout,
		},
		Transformer: provider.TransformerMode(envOrDefault("TRANSFORMER_MODE", string(provider.TransformerPunctuationOnly))),
		Governance: GovernanceConfig{
			CorpusRateLimit: rateLimit,
			TaskRetention:   retention,
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			Algorithm: envOrDefault("JWT_ALGORITHM", "HS256"),
			Expiry:    jwtExpiry,
		},
		Features: FeatureFlags{
			ResponseOptimizer: envBool("FEATURE_RESPONSE_OPTIMIZER", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown enum values and inconsistent settings.
func (c Config) Validate() error {
	if !c.Cache.Backend.IsValid() {
		return fmt.Errorf("invalid CACHE_BACKEND: %q", c.Cache.Backend)
	}
	if !c.Transformer.IsValid() {
		return fmt.Errorf("invalid TRANSFORMER_MODE: %q", c.Transformer)
	}
	if c.Cache.Backend == CacheBackendRedis && c.Cache.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required for the redis cache backend")
	}
	if c.Auth.Algorithm != "HS256" {
		return fmt.Errorf("unsupported JWT_ALGORITHM: %q (only HS256)", c.Auth.Algorithm)
	}
	if c.Governance.CorpusRateLimit < 1 {
		return fmt.Errorf("GOVERNANCE_CORPUS_RATE_LIMIT must be at least 1")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT: %q", c.Log.Format)
	}
	return nil
}

func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}
