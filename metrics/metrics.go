package metrics

import (
	"context"
	"time"
)

// Metrics represents the current state of the webhook ledger.
type Metrics struct {
	// StatusCounts maps status name to count of webhooks in that status
	StatusCounts map[string]int64 `json:"status_counts"`

	// SourceCounts maps source tag to count of webhooks received from it
	SourceCounts map[string]int64 `json:"source_counts"`

	// Throughput represents webhooks that reached a final status per time window
	Throughput ThroughputMetrics `json:"throughput"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// ThroughputMetrics represents webhooks settled over different time windows.
type ThroughputMetrics struct {
	// LastMinute is webhooks settled in the last 1 minute
	LastMinute int64 `json:"last_minute"`

	// LastFiveMinutes is webhooks settled in the last 5 minutes
	LastFiveMinutes int64 `json:"last_five_minutes"`

	// LastFifteenMinutes is webhooks settled in the last 15 minutes
	LastFifteenMinutes int64 `json:"last_fifteen_minutes"`
}

// Collector defines the interface for collecting metrics from the webhook ledger.
type Collector interface {
	// Collect gathers current metrics from the system
	Collect(ctx context.Context) (Metrics, error)
}
