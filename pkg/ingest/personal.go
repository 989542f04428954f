// Package ingest populates the corpus tables the search layer reads:
// personal chat exports, social post dumps, and published article
// collections, all JSON files.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dansasser/mcg-agent/pkg/database"
)

// PersonalStats reports a personal-corpus import.
type PersonalStats struct {
	Threads  int `json:"threads"`
	Messages int `json:"messages"`
}

// conversation matches one entry of a chat-export conversations.json.
type conversation struct {
	ID             string                 `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	UUID           string                 `json:"uuid"`
	Title          string                 `json:"title"`
	CreateTime     float64                `json:"create_time"`
	Mapping        map[string]mappingNode `json:"mapping"`
}

type mappingNode struct {
	Message *exportMessage `json:"message"`
}

type exportMessage struct {
	Author struct {
		Role string `json:"role"`
	} `json:"author"`
	CreateTime float64        `json:"create_time"`
	Content    exportContent  `json:"content"`
	Recipient  string         `json:"recipient"`
	Metadata   map[string]any `json:"metadata"`
}

type exportContent struct {
	ContentType string `json:"content_type"`
	Parts       []any  `json:"parts"`
	Text        string `json:"text"`
}

// text flattens an export message body.
func (c exportContent) text() string {
	if len(c.Parts) > 0 {
		parts := make([]string, 0, len(c.Parts))
		for _, p := range c.Parts {
			if p == nil {
				continue
			}
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			} else {
				parts = append(parts, fmt.Sprint(p))
			}
		}
		return strings.Join(parts, "\n")
	}
	return c.Text
}

func (c conversation) threadID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.ConversationID != "":
		return c.ConversationID
	default:
		return c.UUID
	}
}

// ImportPersonal loads a chat-export conversations.json into the threads and
// messages tables: one thread per conversation, messages flattened from the
// mapping and ordered by create time.
func ImportPersonal(ctx context.Context, db *database.Client, path, sourceLabel string) (PersonalStats, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return PersonalStats{}, fmt.Errorf("failed to read export: %w", err)
	}
	var conversations []conversation
	if err := json.Unmarshal(raw, &conversations); err != nil {
		return PersonalStats{}, fmt.Errorf("failed to parse export: %w", err)
	}
	if sourceLabel == "" {
		sourceLabel = "chat_export"
	}

	var stats PersonalStats
	for _, conv := range conversations {
		threadID := conv.threadID()
		if threadID == "" {
			continue
		}
		title := conv.Title
		if title == "" {
			title = "Untitled"
		}
		startedAt := epochToTime(conv.CreateTime)

		insertThread := fmt.Sprintf(
			"INSERT INTO threads (thread_id, title, started_at) VALUES (%s, %s, %s) ON CONFLICT (thread_id) DO NOTHING",
			db.Placeholder(1), db.Placeholder(2), db.Placeholder(3),
		)
		if _, err := db.DB().ExecContext(ctx, insertThread, threadID, title, startedAt); err != nil {
			return stats, fmt.Errorf("failed to insert thread %s: %w", threadID, err)
		}
		stats.Threads++

		messages := make([]*exportMessage, 0, len(conv.Mapping))
		for _, node := range conv.Mapping {
			if node.Message != nil {
				messages = append(messages, node.Message)
			}
		}
		sort.SliceStable(messages, func(i, j int) bool {
			return messages[i].CreateTime < messages[j].CreateTime
		})

		insertMessage := fmt.Sprintf(
			"INSERT INTO messages (thread_id, role, content, ts, source, channel) VALUES (%s, %s, %s, %s, %s, %s)",
			db.Placeholder(1), db.Placeholder(2), db.Placeholder(3),
			db.Placeholder(4), db.Placeholder(5), db.Placeholder(6),
		)
		for _, m := range messages {
			content := m.Content.text()
			if content == "" {
				continue
			}
			role := m.Author.Role
			if role == "" {
				role = "assistant"
			}
			ts := epochToTime(m.CreateTime)
			if ts.IsZero() {
				ts = startedAt
			}
			if ts.IsZero() {
				ts = time.Now().UTC()
			}
			if _, err := db.DB().ExecContext(ctx, insertMessage, threadID, role, content, ts, sourceLabel, "chat"); err != nil {
				return stats, fmt.Errorf("failed to insert message: %w", err)
			}
			stats.Messages++
		}
	}
	return stats, nil
}

func epochToTime(epoch float64) time.Time {
	if epoch <= 0 {
		return time.Time{}
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}
