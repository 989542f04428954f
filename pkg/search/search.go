// Package search implements the multi-corpus search layer: three connectors
// over the personal, social, and published corpora with backend-adaptive
// ranking and a request-level cache. Connectors fail closed — a database
// error yields an empty result so the pipeline can degrade gracefully.
package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dansasser/mcg-agent/pkg/cache"
	"github.com/dansasser/mcg-agent/pkg/database"
	"github.com/dansasser/mcg-agent/pkg/models"
)

// Per-corpus snippet character budgets.
const (
	personalSnippetBudget  = 240
	socialSnippetBudget    = 180
	publishedSnippetBudget = 360
)

// Default result limits per corpus.
const (
	defaultPersonalLimit  = 20
	defaultSocialLimit    = 30
	defaultPublishedLimit = 20
)

// Result is the common shape returned by every connector.
type Result struct {
	Snippets []models.ContextSnippet `json:"snippets"`
}

// PersonalFilters narrows personal-corpus queries. Filters apply only on the
// substring fallback path; ranked full-text queries ignore them. Tags is not
// applied.
type PersonalFilters struct {
	DateFrom string   `json:"date_from,omitempty"`
	DateTo   string   `json:"date_to,omitempty"`
	Role     string   `json:"role,omitempty"` // "user" or "assistant"
	Source   string   `json:"source,omitempty"`
	ThreadID string   `json:"thread_id,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// SocialFilters narrows social-corpus queries. Filters apply only on the
// substring fallback path; ranked full-text queries ignore them. Hashtags and
// Mentions are not applied.
type SocialFilters struct {
	DateFrom string   `json:"date_from,omitempty"`
	DateTo   string   `json:"date_to,omitempty"`
	Platform string   `json:"platform,omitempty"`
	Hashtags []string `json:"hashtags,omitempty"`
	Mentions []string `json:"mentions,omitempty"`
}

// PublishedFilters narrows published-corpus queries. Filters apply only on
// the substring fallback path; ranked full-text queries ignore them. Tags is
// not applied.
type PublishedFilters struct {
	DateFrom string   `json:"date_from,omitempty"`
	DateTo   string   `json:"date_to,omitempty"`
	Author   string   `json:"author,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Connectors runs ranked or fallback queries against the three corpora.
type Connectors struct {
	db     *database.Client
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewConnectors builds the search layer over a database client and cache.
func NewConnectors(db *database.Client, c cache.Cache, ttl time.Duration) *Connectors {
	if c == nil {
		c = cache.Noop{}
	}
	if ttl <= 0 {
		ttl = 90 * time.Second
	}
	return &Connectors{
		db:     db,
		cache:  c,
		ttl:    ttl,
		logger: slog.Default().With("component", "search"),
	}
}

// cachedResult returns a cached result for key if present.
func (c *Connectors) cachedResult(ctx context.Context, key string) (Result, bool) {
	raw, ok := c.cache.Get(ctx, key)
	if !ok {
		return Result{}, false
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return Result{}, false
	}
	return result, true
}

// storeResult serializes and caches a result under key.
func (c *Connectors) storeResult(ctx context.Context, key string, result Result) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	c.cache.Set(ctx, key, string(raw), c.ttl)
}

// trimSnippet truncates text to the corpus budget, substituting an ellipsis.
func trimSnippet(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return string(runes[:budget-1]) + "…"
}

// snippetDate formats a row timestamp as an ISO date, defaulting to today.
func snippetDate(ts sql.NullTime) string {
	if ts.Valid {
		return ts.Time.UTC().Format("2006-01-02")
	}
	return time.Now().UTC().Format("2006-01-02")
}

// decodeStringList parses a JSON-encoded string array column.
func decodeStringList(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil {
		return nil
	}
	return out
}
