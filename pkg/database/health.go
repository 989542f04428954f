package database

import (
	"context"
	"time"
)

// HealthStatus reports database connectivity and pool usage.
type HealthStatus struct {
	Connected       bool   `json:"connected"`
	LatencyMS       int64  `json:"latency_ms"`
	OpenConnections int    `json:"open_connections"`
	InUse           int    `json:"in_use"`
	Idle            int    `json:"idle"`
	Dialect         string `json:"dialect"`
}

// Health pings the database and returns pool statistics.
func Health(ctx context.Context, c *Client) (HealthStatus, error) {
	start := time.Now()
	err := c.db.PingContext(ctx)
	elapsed := time.Since(start)

	stats := c.db.Stats()
	status := HealthStatus{
		Connected:       err == nil,
		LatencyMS:       elapsed.Milliseconds(),
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		Dialect:         c.dialect,
	}
	return status, err
}
