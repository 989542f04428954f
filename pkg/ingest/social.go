package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dansasser/mcg-agent/pkg/database"
)

// SocialStats reports a social-corpus import.
type SocialStats struct {
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
}

type socialPost struct {
	Platform   string          `json:"platform"`
	Content    string          `json:"content"`
	TS         json.RawMessage `json:"ts"`
	URL        string          `json:"url"`
	Hashtags   []string        `json:"hashtags"`
	Mentions   []string        `json:"mentions"`
	Engagement int             `json:"engagement"`
	Comments   []socialComment `json:"comments"`
}

type socialComment struct {
	Author     string          `json:"author"`
	Content    string          `json:"content"`
	TS         json.RawMessage `json:"ts"`
	Engagement int             `json:"engagement"`
}

// ImportSocial loads a JSON array of posts (with optional comments) into the
// social corpus. platformOverride, when non-empty, replaces each post's
// platform field.
func ImportSocial(ctx context.Context, db *database.Client, path, platformOverride string) (SocialStats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SocialStats{}, fmt.Errorf("failed to read posts file: %w", err)
	}
	var posts []socialPost
	if err := json.Unmarshal(raw, &posts); err != nil {
		return SocialStats{}, fmt.Errorf("failed to parse posts file: %w", err)
	}

	insertPost := fmt.Sprintf(
		"INSERT INTO posts (platform, content, ts, url, hashtags, mentions, engagement) VALUES (%s, %s, %s, %s, %s, %s, %s)",
		db.Placeholder(1), db.Placeholder(2), db.Placeholder(3), db.Placeholder(4),
		db.Placeholder(5), db.Placeholder(6), db.Placeholder(7),
	)
	insertComment := fmt.Sprintf(
		"INSERT INTO comments (post_id, author, content, ts, engagement) VALUES (%s, %s, %s, %s, %s)",
		db.Placeholder(1), db.Placeholder(2), db.Placeholder(3), db.Placeholder(4), db.Placeholder(5),
	)

	var stats SocialStats
	for _, post := range posts {
		if post.Content == "" {
			continue
		}
		platform := post.Platform
		if platformOverride != "" {
			platform = platformOverride
		}
		ts := flexibleTime(post.TS)
		hashtags := marshalList(post.Hashtags)
		mentions := marshalList(post.Mentions)

		// RETURNING works on both Postgres and SQLite; comments need the id.
		var postID int64
		if err := db.DB().QueryRowContext(ctx, insertPost+" RETURNING id",
			platform, post.Content, ts, nullable(post.URL), hashtags, mentions, post.Engagement).Scan(&postID); err != nil {
			return stats, fmt.Errorf("failed to insert post: %w", err)
		}
		stats.Posts++

		if len(post.Comments) == 0 {
			continue
		}
		for _, comment := range post.Comments {
			if comment.Content == "" {
				continue
			}
			commentTS := flexibleTime(comment.TS)
			if _, err := db.DB().ExecContext(ctx, insertComment,
				postID, nullable(comment.Author), comment.Content, commentTS, comment.Engagement); err != nil {
				return stats, fmt.Errorf("failed to insert comment: %w", err)
			}
			stats.Comments++
		}
	}
	return stats, nil
}

// flexibleTime accepts epoch numbers or ISO-8601 strings, defaulting to now.
func flexibleTime(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Now().UTC()
	}
	var epoch float64
	if err := json.Unmarshal(raw, &epoch); err == nil && epoch > 0 {
		return epochToTime(epoch)
	}
	var iso string
	if err := json.Unmarshal(raw, &iso); err == nil {
		if ts, err := time.Parse(time.RFC3339, iso); err == nil {
			return ts.UTC()
		}
	}
	return time.Now().UTC()
}

func marshalList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
