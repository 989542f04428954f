package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dansasser/mcg-agent/pkg/provider"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, CacheBackendNone, cfg.Cache.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 1024, cfg.Cache.MaxItems)
	assert.Equal(t, provider.TransformerPunctuationOnly, cfg.Transformer)
	assert.Equal(t, 10, cfg.Governance.CorpusRateLimit)
	assert.Equal(t, 24*time.Hour, cfg.Governance.TaskRetention)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "HS256", cfg.Auth.Algorithm)
	assert.False(t, cfg.Provider.Enabled())
	assert.False(t, cfg.Features.ResponseOptimizer)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("CACHE_COMPRESS", "true")
	t.Setenv("TRANSFORMER_MODE", "noop")
	t.Setenv("GOVERNANCE_CORPUS_RATE_LIMIT", "25")
	t.Setenv("PROVIDER_API_KEY", "sk-test")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("FEATURE_RESPONSE_OPTIMIZER", "true")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.True(t, cfg.Cache.Compress)
	assert.Equal(t, provider.TransformerNoop, cfg.Transformer)
	assert.Equal(t, 25, cfg.Governance.CorpusRateLimit)
	assert.True(t, cfg.Provider.Enabled())
	assert.True(t, cfg.Features.ResponseOptimizer)
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad cache backend", "CACHE_BACKEND", "memcached"},
		{"bad transformer mode", "TRANSFORMER_MODE", "magic"},
		{"bad ttl", "CACHE_TTL", "ninety"},
		{"bad rate limit", "GOVERNANCE_CORPUS_RATE_LIMIT", "0"},
		{"bad jwt algorithm", "JWT_ALGORITHM", "RS256"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad log format", "LOG_FORMAT", "logfmt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadFromEnv()
			assert.Error(t, err)
		})
	}
}

func TestCacheBackend_IsValid(t *testing.T) {
	assert.True(t, CacheBackend("").IsValid())
	assert.True(t, CacheBackendNone.IsValid())
	assert.True(t, CacheBackendMemory.IsValid())
	assert.True(t, CacheBackendRedis.IsValid())
	assert.False(t, CacheBackend("disk").IsValid())
}
