package search

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dansasser/mcg-agent/pkg/cache"
	"github.com/dansasser/mcg-agent/pkg/models"
)

// QueryPersonal searches the personal corpus (chat messages). With a
// full-text backend the query is ranked by ts_rank_cd; otherwise it falls
// back to a case-insensitive substring match ordered by recency.
func (c *Connectors) QueryPersonal(ctx context.Context, query string, filters PersonalFilters, limit int) Result {
	if limit <= 0 {
		limit = defaultPersonalLimit
	}
	key := cache.Key("personal", map[string]any{"q": query, "f": filters, "l": limit})
	if cached, ok := c.cachedResult(ctx, key); ok {
		return cached
	}

	var result Result
	if c.db.SupportsFullText() && query != "" {
		result = c.queryPersonalRanked(ctx, query, limit)
	} else {
		result = c.queryPersonalFallback(ctx, query, filters, limit)
	}

	c.storeResult(ctx, key, result)
	return result
}

func (c *Connectors) queryPersonalRanked(ctx context.Context, query string, limit int) Result {
	const stmt = `
SELECT m.id, m.thread_id, m.role, m.content, m.ts,
       ts_rank_cd(m.content_tsv, plainto_tsquery('english', $1)) AS rank
FROM messages m
WHERE m.content_tsv @@ plainto_tsquery('english', $1)
ORDER BY rank DESC, m.ts DESC
LIMIT $2`

	rows, err := c.db.DB().QueryContext(ctx, stmt, query, limit)
	if err != nil {
		c.logger.Warn("personal ranked query failed, returning empty result", "error", err)
		return Result{Snippets: []models.ContextSnippet{}}
	}
	defer rows.Close()
	return c.scanPersonalRows(rows, true)
}

func (c *Connectors) queryPersonalFallback(ctx context.Context, query string, filters PersonalFilters, limit int) Result {
	stmt := "SELECT id, thread_id, role, content, ts FROM messages"
	var args []any
	var conds []string

	addCond := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, c.db.Placeholder(len(args))))
	}

	if query != "" {
		addCond("lower(content) LIKE lower(%s)", "%"+query+"%")
	}
	if filters.Role != "" {
		addCond("role = %s", filters.Role)
	}
	if filters.Source != "" {
		addCond("source = %s", filters.Source)
	}
	if filters.ThreadID != "" {
		addCond("thread_id = %s", filters.ThreadID)
	}
	if filters.DateFrom != "" {
		addCond("ts >= %s", filters.DateFrom)
	}
	if filters.DateTo != "" {
		addCond("ts <= %s", filters.DateTo)
	}

	stmt += whereClause(conds)
	args = append(args, limit)
	stmt += fmt.Sprintf(" ORDER BY ts DESC LIMIT %s", c.db.Placeholder(len(args)))

	rows, err := c.db.DB().QueryContext(ctx, stmt, args...)
	if err != nil {
		c.logger.Warn("personal fallback query failed, returning empty result", "error", err)
		return Result{Snippets: []models.ContextSnippet{}}
	}
	defer rows.Close()
	return c.scanPersonalRows(rows, false)
}

func (c *Connectors) scanPersonalRows(rows *sql.Rows, ranked bool) Result {
	snippets := []models.ContextSnippet{}
	for rows.Next() {
		var (
			id       int64
			threadID sql.NullString
			role     sql.NullString
			content  sql.NullString
			ts       sql.NullTime
			rank     float64
		)
		dest := []any{&id, &threadID, &role, &content, &ts}
		if ranked {
			dest = append(dest, &rank)
		}
		if err := rows.Scan(dest...); err != nil {
			c.logger.Warn("personal row scan failed", "error", err)
			continue
		}
		notes := ""
		if role.Valid {
			notes = "role=" + role.String
		}
		snippets = append(snippets, models.ContextSnippet{
			Text:        trimSnippet(content.String, personalSnippetBudget),
			Origin:      models.OriginPersonal,
			Date:        snippetDate(ts),
			Attribution: fmt.Sprintf("personal://messages/%d", id),
			Notes:       notes,
		})
	}
	if err := rows.Err(); err != nil {
		c.logger.Warn("personal row iteration failed", "error", err)
	}
	return Result{Snippets: snippets}
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	out := " WHERE " + conds[0]
	for _, cond := range conds[1:] {
		out += " AND " + cond
	}
	return out
}
