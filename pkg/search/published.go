package search

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dansasser/mcg-agent/pkg/cache"
	"github.com/dansasser/mcg-agent/pkg/models"
)

// QueryPublished searches the published corpus (articles). The ranked branch
// adds a tenth of the source's authority score to the full-text score.
func (c *Connectors) QueryPublished(ctx context.Context, query string, filters PublishedFilters, limit int) Result {
	if limit <= 0 {
		limit = defaultPublishedLimit
	}
	key := cache.Key("published", map[string]any{"q": query, "f": filters, "l": limit})
	if cached, ok := c.cachedResult(ctx, key); ok {
		return cached
	}

	var result Result
	if c.db.SupportsFullText() && query != "" {
		result = c.queryPublishedRanked(ctx, query, limit)
	} else {
		result = c.queryPublishedFallback(ctx, query, filters, limit)
	}

	c.storeResult(ctx, key, result)
	return result
}

func (c *Connectors) queryPublishedRanked(ctx context.Context, query string, limit int) Result {
	const stmt = `
SELECT a.id, a.title, a.content, a.ts, a.author, a.url, a.tags,
       ts_rank_cd(a.content_tsv, plainto_tsquery('english', $1))
           + 0.1 * coalesce(s.authority_score, 0) AS rank
FROM articles a
LEFT JOIN sources s ON a.source_id = s.id
WHERE a.content_tsv @@ plainto_tsquery('english', $1)
ORDER BY rank DESC, a.ts DESC
LIMIT $2`

	rows, err := c.db.DB().QueryContext(ctx, stmt, query, limit)
	if err != nil {
		c.logger.Warn("published ranked query failed, returning empty result", "error", err)
		return Result{Snippets: []models.ContextSnippet{}}
	}
	defer rows.Close()
	return c.scanPublishedRows(rows, true)
}

func (c *Connectors) queryPublishedFallback(ctx context.Context, query string, filters PublishedFilters, limit int) Result {
	stmt := "SELECT id, title, content, ts, author, url, tags FROM articles"
	var args []any
	var conds []string

	addCond := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, c.db.Placeholder(len(args))))
	}

	if query != "" {
		addCond("lower(content) LIKE lower(%s)", "%"+query+"%")
	}
	if filters.Author != "" {
		addCond("author = %s", filters.Author)
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
		c.logger.Warn("published fallback query failed, returning empty result", "error", err)
		return Result{Snippets: []models.ContextSnippet{}}
	}
	defer rows.Close()
	return c.scanPublishedRows(rows, false)
}

func (c *Connectors) scanPublishedRows(rows *sql.Rows, ranked bool) Result {
	snippets := []models.ContextSnippet{}
	for rows.Next() {
		var (
			id      int64
			title   sql.NullString
			content sql.NullString
			ts      sql.NullTime
			author  sql.NullString
			url     sql.NullString
			tags    sql.NullString
			rank    float64
		)
		dest := []any{&id, &title, &content, &ts, &author, &url, &tags}
		if ranked {
			dest = append(dest, &rank)
		}
		if err := rows.Scan(dest...); err != nil {
			c.logger.Warn("published row scan failed", "error", err)
			continue
		}
		attribution := url.String
		if attribution == "" {
			attribution = fmt.Sprintf("published://articles/%d", id)
		}
		notes := ""
		if author.Valid && author.String != "" {
			notes = "author=" + author.String
		}
		snippets = append(snippets, models.ContextSnippet{
			Text:        trimSnippet(content.String, publishedSnippetBudget),
			Origin:      models.OriginPublished,
			Date:        snippetDate(ts),
			Tags:        decodeStringList(tags),
			Attribution: attribution,
			Notes:       notes,
		})
	}
	if err := rows.Err(); err != nil {
		c.logger.Warn("published row iteration failed", "error", err)
	}
	return Result{Snippets: snippets}
}
