package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcelsud/webhook-ledger/webhook"
	"github.com/marcelsud/webhook-ledger/webhook/memory"
	"github.com/marcelsud/webhook-ledger/webhook/mocks"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seededCollector(t *testing.T, now time.Time) *StoreCollector {
	t.Helper()

	ctx := context.Background()
	repo := memory.NewRepository()
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	records := []webhook.Webhook{
		{Payload: "{}", Source: "github", Status: webhook.Pending, ReceivedAt: now.Add(-time.Hour)},
		{Payload: "{}", Source: "github", Status: webhook.Processed, ReceivedAt: now.Add(-time.Hour), ProcessedAt: at(30 * time.Second)},
		{Payload: "{}", Source: "stripe", Status: webhook.Failed, ReceivedAt: now.Add(-time.Hour), ProcessedAt: at(3 * time.Minute)},
		{Payload: "{}", Source: "stripe", Status: webhook.Processed, ReceivedAt: now.Add(-time.Hour), ProcessedAt: at(10 * time.Minute)},
		{Payload: "{}", Source: "unknown", Status: webhook.Processed, ReceivedAt: now.Add(-time.Hour), ProcessedAt: at(time.Hour)},
	}
	for _, wh := range records {
		_, err := repo.Insert(ctx, wh)
		require.NoError(t, err)
	}

	collector := NewStoreCollector(repo)
	collector.Now = func() time.Time { return now }
	return collector
}

func TestStoreCollector(t *testing.T) {
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	t.Run("status counts include every status", func(t *testing.T) {
		m, err := seededCollector(t, now).Collect(ctx)

		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"pending": 1, "processed": 3, "failed": 1}, m.StatusCounts)
	})

	t.Run("empty store", func(t *testing.T) {
		m, err := NewStoreCollector(memory.NewRepository()).Collect(ctx)

		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"pending": 0, "processed": 0, "failed": 0}, m.StatusCounts)
		assert.Empty(t, m.SourceCounts)
	})

	t.Run("source counts", func(t *testing.T) {
		m, err := seededCollector(t, now).Collect(ctx)

		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"github": 2, "stripe": 2, "unknown": 1}, m.SourceCounts)
	})

	t.Run("throughput windows", func(t *testing.T) {
		m, err := seededCollector(t, now).Collect(ctx)

		require.NoError(t, err)
		assert.Equal(t, ThroughputMetrics{LastMinute: 1, LastFiveMinutes: 2, LastFifteenMinutes: 3}, m.Throughput)
	})

	t.Run("collect", func(t *testing.T) {
		m, err := seededCollector(t, now).Collect(ctx)

		require.NoError(t, err)
		assert.Equal(t, int64(3), m.StatusCounts["processed"])
		assert.Equal(t, int64(2), m.SourceCounts["stripe"])
		assert.Equal(t, int64(3), m.Throughput.LastFifteenMinutes)
		assert.Equal(t, now, m.Timestamp)
	})

	t.Run("store error", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		repo.On("Scan", mock.Anything, webhook.ByReceivedAt, "").Return(nil, errors.New("boom"))

		_, err := NewStoreCollector(repo).Collect(ctx)

		assert.Error(t, err)
	})
}

func TestOTelExporter(t *testing.T) {
	registry := promclient.NewRegistry()
	exporter, err := NewOTelExporter(seededCollector(t, time.Now()), registry)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exporter.Shutdown(context.Background()) })

	w := httptest.NewRecorder()
	exporter.ServeHTTP().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "webhook_status_count")
	assert.Contains(t, body, "webhook_source_count")
	assert.Contains(t, body, "webhook_throughput")
	assert.Contains(t, body, `"github"`)
	assert.Contains(t, body, `"processed"`)
}
