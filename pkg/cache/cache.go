// Package cache provides the request-level cache used by the search layer.
// Two real backends are available — an in-memory LRU with TTL and optional
// compression, and a Redis-backed store relying on server-side TTL — plus a
// no-op backend that disables caching.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Cache is the two-operation interface the search layer depends on. Both
// operations are best-effort: backends never propagate storage errors to
// callers.
type Cache interface {
	// Get returns the cached value and whether it was present and fresh.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// Noop is the disabled-cache backend: every Get misses, every Set is dropped.
type Noop struct{}

func (Noop) Get(context.Context, string) (string, bool)          { return "", false }
func (Noop) Set(context.Context, string, string, time.Duration) {}

// Key builds a namespaced cache key: cache:{namespace}:{canonical-json}.
// Arguments are serialized with sorted keys so equal argument sets always
// produce the same key.
func Key(namespace string, args map[string]any) string {
	return fmt.Sprintf("cache:%s:%s", namespace, canonicalJSON(args))
}

// Namespace extracts the namespace from a key built by Key, or "default".
func Namespace(key string) string {
	rest, ok := strings.CutPrefix(key, "cache:")
	if !ok {
		return "default"
	}
	ns, _, ok := strings.Cut(rest, ":")
	if !ok || ns == "" {
		return "default"
	}
	return ns
}

func canonicalJSON(args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		name, _ := json.Marshal(k)
		b.Write(name)
		b.WriteByte(':')
		value, err := json.Marshal(args[k])
		if err != nil {
			value = []byte(`null`)
		}
		b.Write(value)
	}
	b.WriteByte('}')
	return b.String()
}
