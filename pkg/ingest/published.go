package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/dansasser/mcg-agent/pkg/database"
)

// PublishedStats reports a published-corpus import.
type PublishedStats struct {
	Articles int `json:"articles"`
	Sources  int `json:"sources"`
}

type publishedArticle struct {
	Title   string          `json:"title"`
	Content string          `json:"content"`
	TS      json.RawMessage `json:"ts"`
	Author  string          `json:"author"`
	URL     string          `json:"url"`
	Tags    []string        `json:"tags"`
	Source  *struct {
		Domain         string  `json:"domain"`
		AuthorityScore float64 `json:"authority_score"`
	} `json:"source"`
}

// ImportPublished loads a JSON array of articles into the published corpus,
// creating (or reusing) one source row per domain.
func ImportPublished(ctx context.Context, db *database.Client, path string, defaultAuthority float64) (PublishedStats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PublishedStats{}, fmt.Errorf("failed to read articles file: %w", err)
	}
	var articles []publishedArticle
	if err := json.Unmarshal(raw, &articles); err != nil {
		return PublishedStats{}, fmt.Errorf("failed to parse articles file: %w", err)
	}

	var stats PublishedStats
	sourceIDs := make(map[string]int64)

	for _, article := range articles {
		if article.Content == "" {
			continue
		}

		domain := ""
		authority := defaultAuthority
		if article.Source != nil {
			domain = article.Source.Domain
			if article.Source.AuthorityScore > 0 {
				authority = article.Source.AuthorityScore
			}
		}
		if domain == "" {
			domain = domainOf(article.URL)
		}

		var sourceID any
		if domain != "" {
			id, ok := sourceIDs[domain]
			if !ok {
				var err error
				id, err = upsertSource(ctx, db, domain, authority)
				if err != nil {
					return stats, err
				}
				sourceIDs[domain] = id
				stats.Sources++
			}
			sourceID = id
		}

		insertArticle := fmt.Sprintf(
			"INSERT INTO articles (title, content, ts, author, url, tags, source_id) VALUES (%s, %s, %s, %s, %s, %s, %s)",
			db.Placeholder(1), db.Placeholder(2), db.Placeholder(3), db.Placeholder(4),
			db.Placeholder(5), db.Placeholder(6), db.Placeholder(7),
		)
		if _, err := db.DB().ExecContext(ctx, insertArticle,
			article.Title, article.Content, flexibleTime(article.TS),
			nullable(article.Author), nullable(article.URL), marshalList(article.Tags), sourceID); err != nil {
			return stats, fmt.Errorf("failed to insert article: %w", err)
		}
		stats.Articles++
	}
	return stats, nil
}

// upsertSource finds or creates the source row for a domain and returns its id.
func upsertSource(ctx context.Context, db *database.Client, domain string, authority float64) (int64, error) {
	selectStmt := fmt.Sprintf("SELECT id FROM sources WHERE domain = %s", db.Placeholder(1))
	var id int64
	err := db.DB().QueryRowContext(ctx, selectStmt, domain).Scan(&id)
	if err == nil {
		return id, nil
	}

	insertStmt := fmt.Sprintf(
		"INSERT INTO sources (domain, authority_score) VALUES (%s, %s)",
		db.Placeholder(1), db.Placeholder(2),
	)
	if db.Dialect() == database.DialectPostgres {
		insertStmt += " RETURNING id"
		if err := db.DB().QueryRowContext(ctx, insertStmt, domain, authority).Scan(&id); err != nil {
			return 0, fmt.Errorf("failed to insert source %s: %w", domain, err)
		}
		return id, nil
	}
	res, err := db.DB().ExecContext(ctx, insertStmt, domain, authority)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", domain, err)
	}
	return res.LastInsertId()
}

func domainOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}
