package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-ledger/webhook"
)

var _ Collector = (*StoreCollector)(nil)

// StoreCollector implements Collector over any webhook store
// by scanning the receivedAt ordering index.
type StoreCollector struct {
	reader webhook.Reader
	Now    func() time.Time
}

// NewStoreCollector creates a new collector reading from the given store
func NewStoreCollector(reader webhook.Reader) *StoreCollector {
	return &StoreCollector{
		reader: reader,
		Now:    time.Now,
	}
}

// Collect gathers all metrics in one pass over the store
func (c *StoreCollector) Collect(ctx context.Context) (Metrics, error) {
	all, err := c.scan(ctx)
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		StatusCounts: statusCounts(all),
		SourceCounts: sourceCounts(all),
		Throughput:   throughput(all, c.Now()),
		Timestamp:    c.Now(),
	}, nil
}

func (c *StoreCollector) scan(ctx context.Context) ([]webhook.Webhook, error) {
	all, err := c.reader.Scan(ctx, webhook.ByReceivedAt, "")
	if err != nil {
		return nil, fmt.Errorf("scanning webhooks: %w", err)
	}
	return all, nil
}

func statusCounts(all []webhook.Webhook) map[string]int64 {
	counts := map[string]int64{
		webhook.Pending.String():   0,
		webhook.Processed.String(): 0,
		webhook.Failed.String():    0,
	}
	for _, wh := range all {
		if _, exists := counts[wh.Status.String()]; exists {
			counts[wh.Status.String()]++
		}
	}
	return counts
}

func sourceCounts(all []webhook.Webhook) map[string]int64 {
	counts := make(map[string]int64)
	for _, wh := range all {
		counts[wh.Source]++
	}
	return counts
}

func throughput(all []webhook.Webhook, now time.Time) ThroughputMetrics {
	oneMinuteAgo := now.Add(-1 * time.Minute)
	fiveMinutesAgo := now.Add(-5 * time.Minute)
	fifteenMinutesAgo := now.Add(-15 * time.Minute)

	var tp ThroughputMetrics
	for _, wh := range all {
		if !wh.Status.IsFinal() || wh.ProcessedAt == nil {
			continue
		}
		at := *wh.ProcessedAt
		if at.Before(fifteenMinutesAgo) {
			continue
		}
		tp.LastFifteenMinutes++
		if !at.Before(fiveMinutesAgo) {
			tp.LastFiveMinutes++
			if !at.Before(oneMinuteAgo) {
				tp.LastMinute++
			}
		}
	}
	return tp
}
