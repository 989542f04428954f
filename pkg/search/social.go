package search

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dansasser/mcg-agent/pkg/cache"
	"github.com/dansasser/mcg-agent/pkg/models"
)

// QuerySocial searches the social corpus (posts). The ranked branch adds an
// engagement bonus to the full-text score; the fallback orders by recency
// then engagement.
func (c *Connectors) QuerySocial(ctx context.Context, query string, filters SocialFilters, limit int) Result {
	if limit <= 0 {
		limit = defaultSocialLimit
	}
	key := cache.Key("social", map[string]any{"q": query, "f": filters, "l": limit})
	if cached, ok := c.cachedResult(ctx, key); ok {
		return cached
	}

	var result Result
	if c.db.SupportsFullText() && query != "" {
		result = c.querySocialRanked(ctx, query, limit)
	} else {
		result = c.querySocialFallback(ctx, query, filters, limit)
	}

	c.storeResult(ctx, key, result)
	return result
}

func (c *Connectors) querySocialRanked(ctx context.Context, query string, limit int) Result {
	const stmt = `
SELECT p.id, p.platform, p.content, p.ts, p.url, p.hashtags,
       ts_rank_cd(p.content_tsv, plainto_tsquery('english', $1))
           + 0.05 * ln(1 + coalesce(p.engagement, 0)) AS rank
FROM posts p
WHERE p.content_tsv @@ plainto_tsquery('english', $1)
ORDER BY rank DESC, p.ts DESC
LIMIT $2`

	rows, err := c.db.DB().QueryContext(ctx, stmt, query, limit)
	if err != nil {
		c.logger.Warn("social ranked query failed, returning empty result", "error", err)
		return Result{Snippets: []models.ContextSnippet{}}
	}
	defer rows.Close()
	return c.scanSocialRows(rows, true)
}

func (c *Connectors) querySocialFallback(ctx context.Context, query string, filters SocialFilters, limit int) Result {
	stmt := "SELECT id, platform, content, ts, url, hashtags FROM posts"
	var args []any
	var conds []string

	addCond := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, c.db.Placeholder(len(args))))
	}

	if query != "" {
		addCond("lower(content) LIKE lower(%s)", "%"+query+"%")
	}
	if filters.Platform != "" {
		addCond("platform = %s", filters.Platform)
	}
	if filters.DateFrom != "" {
		addCond("ts >= %s", filters.DateFrom)
	}
	if filters.DateTo != "" {
		addCond("ts <= %s", filters.DateTo)
	}

	stmt += whereClause(conds)
	args = append(args, limit)
	stmt += fmt.Sprintf(" ORDER BY ts DESC, engagement DESC LIMIT %s", c.db.Placeholder(len(args)))

	rows, err := c.db.DB().QueryContext(ctx, stmt, args...)
	if err != nil {
		c.logger.Warn("social fallback query failed, returning empty result", "error", err)
		return Result{Snippets: []models.ContextSnippet{}}
	}
	defer rows.Close()
	return c.scanSocialRows(rows, false)
}

func (c *Connectors) scanSocialRows(rows *sql.Rows, ranked bool) Result {
	snippets := []models.ContextSnippet{}
	for rows.Next() {
		var (
			id       int64
			platform sql.NullString
			content  sql.NullString
			ts       sql.NullTime
			url      sql.NullString
			hashtags sql.NullString
			rank     float64
		)
		dest := []any{&id, &platform, &content, &ts, &url, &hashtags}
		if ranked {
			dest = append(dest, &rank)
		}
		if err := rows.Scan(dest...); err != nil {
			c.logger.Warn("social row scan failed", "error", err)
			continue
		}
		attribution := url.String
		if attribution == "" {
			attribution = fmt.Sprintf("social://posts/%d", id)
		}
		notes := ""
		if platform.Valid && platform.String != "" {
			notes = "platform=" + platform.String
		}
		snippets = append(snippets, models.ContextSnippet{
			Text:        trimSnippet(content.String, socialSnippetBudget),
			Origin:      models.OriginSocial,
			Date:        snippetDate(ts),
			Tags:        decodeStringList(hashtags),
			Attribution: attribution,
			Notes:       notes,
		})
	}
	if err := rows.Err(); err != nil {
		c.logger.Warn("social row iteration failed", "error", err)
	}
	return Result{Snippets: snippets}
}
