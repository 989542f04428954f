package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/dansasser/mcg-agent/pkg/database"
)

// Seed inserts a small sample corpus across all three corpora so a fresh
// deployment has something to search. Intended for local development and
// smoke runs.
func Seed(ctx context.Context, db *database.Client) error {
	now := time.Now().UTC()

	insertThread := fmt.Sprintf(
		"INSERT INTO threads (thread_id, title, started_at) VALUES (%s, %s, %s) ON CONFLICT (thread_id) DO NOTHING",
		db.Placeholder(1), db.Placeholder(2), db.Placeholder(3),
	)
	if _, err := db.DB().ExecContext(ctx, insertThread, "seed-thread", "Seed conversation", now); err != nil {
		return fmt.Errorf("failed to seed thread: %w", err)
	}

	insertMessage := fmt.Sprintf(
		"INSERT INTO messages (thread_id, role, content, ts, source, channel) VALUES (%s, %s, %s, %s, %s, %s)",
		db.Placeholder(1), db.Placeholder(2), db.Placeholder(3),
		db.Placeholder(4), db.Placeholder(5), db.Placeholder(6),
	)
	messages := []struct {
		role, content string
	}{
		{"user", "How should a governed content pipeline treat corpus access?"},
		{"assistant", "Each stage declares its corpus set up front; the enforcer rejects anything outside it."},
	}
	for i, m := range messages {
		if _, err := db.DB().ExecContext(ctx, insertMessage,
			"seed-thread", m.role, m.content, now.Add(time.Duration(i)*time.Minute), "seed", "chat"); err != nil {
			return fmt.Errorf("failed to seed message: %w", err)
		}
	}

	insertPost := fmt.Sprintf(
		"INSERT INTO posts (platform, content, ts, url, hashtags, mentions, engagement) VALUES (%s, %s, %s, %s, %s, %s, %s)",
		db.Placeholder(1), db.Placeholder(2), db.Placeholder(3), db.Placeholder(4),
		db.Placeholder(5), db.Placeholder(6), db.Placeholder(7),
	)
	if _, err := db.DB().ExecContext(ctx, insertPost,
		"mastodon", "Shipping a five-stage governed pipeline this week.", now,
		nil, `["pipelines","golang"]`, "[]", 12); err != nil {
		return fmt.Errorf("failed to seed post: %w", err)
	}

	sourceID, err := upsertSource(ctx, db, "example.dev", 0.8)
	if err != nil {
		return err
	}
	insertArticle := fmt.Sprintf(
		"INSERT INTO articles (title, content, ts, author, url, tags, source_id) VALUES (%s, %s, %s, %s, %s, %s, %s)",
		db.Placeholder(1), db.Placeholder(2), db.Placeholder(3), db.Placeholder(4),
		db.Placeholder(5), db.Placeholder(6), db.Placeholder(7),
	)
	if _, err := db.DB().ExecContext(ctx, insertArticle,
		"Governed pipelines", "A content pipeline earns trust by making violations impossible, not discouraged.",
		now, "seed", "https://example.dev/governed-pipelines", `["governance"]`, sourceID); err != nil {
		return fmt.Errorf("failed to seed article: %w", err)
	}
	return nil
}
