package webhook_test

import (
	"context"
	"fmt"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/marcelsud/webhook-ledger/internal/user"
	"github.com/marcelsud/webhook-ledger/webhook"
	"github.com/marcelsud/webhook-ledger/webhook/memory"
	"github.com/marcelsud/webhook-ledger/webhook/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fixedClock returns a clock that advances one millisecond per call
func fixedClock(start int64) func() time.Time {
	current := start
	return func() time.Time {
		t := time.UnixMilli(current)
		current++
		return t
	}
}

func authenticated(userID string) context.Context {
	return user.NewContext(context.Background(), user.User{ID: userID})
}

func TestIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("success - stores pending record with source", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)
		service.Now = fixedClock(1000)

		repo.On("Insert", ctx, webhook.MatchWebhook(func(wh webhook.Webhook) bool {
			return wh.ID == "" &&
				wh.Payload == `{"a":1}` &&
				wh.Source == "github" &&
				wh.Status == webhook.Pending &&
				wh.UserID == "" &&
				wh.ErrorMessage == "" &&
				wh.ProcessedAt == nil &&
				wh.ReceivedAt.UnixMilli() == 1000
		})).Return("webhook-123", nil)

		id, err := service.Ingest(ctx, []byte(`{"a":1}`), "github")

		require.NoError(t, err)
		assert.Equal(t, "webhook-123", id)
	})

	t.Run("missing source falls back to unknown", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		repo.On("Insert", ctx, webhook.MatchWebhook(func(wh webhook.Webhook) bool {
			return wh.Source == webhook.UnknownSource
		})).Return("webhook-456", nil)

		_, err := service.Ingest(ctx, []byte(`[]`), "")

		require.NoError(t, err)
	})

	t.Run("payload is stored verbatim", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)
		body := "{ \"b\" : [1, 2,3] }\n"

		repo.On("Insert", ctx, webhook.MatchWebhook(func(wh webhook.Webhook) bool {
			return wh.Payload == body
		})).Return("webhook-789", nil)

		_, err := service.Ingest(ctx, []byte(body), "custom")

		require.NoError(t, err)
	})

	t.Run("invalid UTF-8 is replaced before storing", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		repo.On("Insert", ctx, webhook.MatchWebhook(func(wh webhook.Webhook) bool {
			return utf8.ValidString(wh.Payload) && wh.Payload == "{\"a\":\"\uFFFD\uFFFD\"}"
		})).Return("webhook-utf8", nil)

		id, err := service.Ingest(ctx, []byte("{\"a\":\"\xff\xfe\"}"), "github")

		require.NoError(t, err)
		assert.Equal(t, "webhook-utf8", id)
	})

	t.Run("invalid UTF-8 outside a string is rejected", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		_, err := service.Ingest(ctx, []byte("{\"a\":1}\xff"), "github")

		assert.ErrorIs(t, err, webhook.ErrInvalidPayload)
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("invalid JSON never reaches the store", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		for _, body := range []string{`{a:1`, ``, `not json`, `{"a":1}{`} {
			_, err := service.Ingest(ctx, []byte(body), "github")
			assert.ErrorIs(t, err, webhook.ErrInvalidPayload, body)
		}
		repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		repo.On("Insert", ctx, mock.Anything).Return("", fmt.Errorf("connection refused"))

		_, err := service.Ingest(ctx, []byte(`{}`), "github")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "storing webhook")
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("anonymous caller may create", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		repo.On("Insert", ctx, webhook.MatchWebhook(func(wh webhook.Webhook) bool {
			return wh.Status == webhook.Pending && wh.UserID == "user-1" && wh.Source == "stripe"
		})).Return("webhook-1", nil)

		id, err := service.Create(ctx, `{"x":true}`, "stripe", "user-1")

		require.NoError(t, err)
		assert.Equal(t, "webhook-1", id)
	})
}

func TestList(t *testing.T) {
	t.Run("unauthenticated caller gets empty result", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		result, err := service.List(context.Background(), webhook.ListOptions{})

		require.NoError(t, err)
		assert.NotNil(t, result)
		assert.Empty(t, result)
	})

	t.Run("source wins over status", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)
		ctx := authenticated("user-1")

		repo.On("Scan", ctx, webhook.BySource, "github").Return([]webhook.Webhook{}, nil)

		_, err := service.List(ctx, webhook.ListOptions{Source: "github", Status: webhook.Failed})

		require.NoError(t, err)
	})

	t.Run("status filter", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)
		ctx := authenticated("user-1")

		repo.On("Scan", ctx, webhook.ByStatus, "failed").Return(nil, nil)

		result, err := service.List(ctx, webhook.ListOptions{Status: webhook.Failed})

		require.NoError(t, err)
		assert.NotNil(t, result)
	})

	t.Run("sorted most recent first with limit", func(t *testing.T) {
		repo := memory.NewRepository()
		service := webhook.NewService(repo)
		ctx := authenticated("user-1")

		for _, ms := range []int64{5000, 1000, 3000, 4000, 2000} {
			_, err := repo.Insert(ctx, webhook.Webhook{
				Payload:    fmt.Sprintf(`{"at":%d}`, ms),
				Source:     "github",
				Status:     webhook.Pending,
				ReceivedAt: time.UnixMilli(ms),
			})
			require.NoError(t, err)
		}

		all, err := service.List(ctx, webhook.ListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 5)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].ReceivedAt.After(all[i-1].ReceivedAt))
		}

		for _, n := range []int{1, 3, 5, 10} {
			limited, err := service.List(ctx, webhook.ListOptions{Limit: n})
			require.NoError(t, err)
			expected := min(n, len(all))
			require.Len(t, limited, expected)
			assert.Equal(t, all[:expected], limited)
		}

		for _, n := range []int{0, -1} {
			unlimited, err := service.List(ctx, webhook.ListOptions{Limit: n})
			require.NoError(t, err)
			assert.Len(t, unlimited, 5)
		}
	})
}

func TestGet(t *testing.T) {
	t.Run("unauthenticated caller gets nil", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		wh, err := service.Get(context.Background(), "webhook-1")

		require.NoError(t, err)
		assert.Nil(t, wh)
	})

	t.Run("absent record", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)
		ctx := authenticated("user-1")

		repo.On("Get", ctx, "missing").Return(webhook.Webhook{}, webhook.ErrNotFound)

		wh, err := service.Get(ctx, "missing")

		require.NoError(t, err)
		assert.Nil(t, wh)
	})

	t.Run("any authenticated caller may read any record", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)
		ctx := authenticated("user-2")

		repo.On("Get", ctx, "webhook-1").Return(webhook.Webhook{ID: "webhook-1", UserID: "user-1"}, nil)

		wh, err := service.Get(ctx, "webhook-1")

		require.NoError(t, err)
		require.NotNil(t, wh)
		assert.Equal(t, "user-1", wh.UserID)
	})
}

func TestListByUser(t *testing.T) {
	t.Run("unauthenticated caller gets empty result", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		result, err := service.ListByUser(context.Background(), 10)

		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("only the caller's records", func(t *testing.T) {
		repo := memory.NewRepository()
		service := webhook.NewService(repo)
		service.Now = fixedClock(1000)
		ctx := authenticated("user-1")

		mine1, _ := service.Create(ctx, `{}`, "github", "user-1")
		_, _ = service.Create(ctx, `{}`, "github", "user-2")
		_, _ = service.Ingest(ctx, []byte(`{}`), "github")
		mine2, _ := service.Create(ctx, `{}`, "stripe", "user-1")

		result, err := service.ListByUser(ctx, 0)
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, mine2, result[0].ID)
		assert.Equal(t, mine1, result[1].ID)

		limited, err := service.ListByUser(ctx, 1)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		assert.Equal(t, mine2, limited[0].ID)
	})
}

func TestStats(t *testing.T) {
	t.Run("unauthenticated caller gets nil", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		stats, err := service.Stats(context.Background())

		require.NoError(t, err)
		assert.Nil(t, stats)
	})

	t.Run("global counts add up", func(t *testing.T) {
		repo := memory.NewRepository()
		service := webhook.NewService(repo)
		ctx := authenticated("user-1")

		var ids []string
		for i := 0; i < 6; i++ {
			id, err := service.Create(ctx, `{}`, "github", fmt.Sprintf("user-%d", i%2))
			require.NoError(t, err)
			ids = append(ids, id)
		}
		require.NoError(t, service.UpdateStatus(ctx, ids[0], webhook.Processed, ""))
		require.NoError(t, service.UpdateStatus(ctx, ids[1], webhook.Failed, "boom"))
		require.NoError(t, service.UpdateStatus(ctx, ids[2], webhook.Failed, ""))
		require.NoError(t, service.UpdateStatus(ctx, ids[2], webhook.Processed, ""))
		require.NoError(t, service.Remove(ctx, ids[3]))

		stats, err := service.Stats(ctx)
		require.NoError(t, err)
		require.NotNil(t, stats)
		assert.Equal(t, webhook.Stats{Total: 5, Pending: 2, Processed: 2, Failed: 1}, *stats)
		assert.Equal(t, stats.Total, stats.Pending+stats.Processed+stats.Failed)
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		err := service.UpdateStatus(context.Background(), "webhook-123", webhook.Processed, "")

		assert.ErrorIs(t, err, webhook.ErrNotAuthenticated)
	})

	t.Run("invalid status", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		invalidStatus := webhook.Status(999)

		err := service.UpdateStatus(authenticated("user-1"), "webhook-123", invalidStatus, "")

		require.Error(t, err)
		assert.ErrorIs(t, err, webhook.ErrInvalidStatus)
		assert.Contains(t, err.Error(), "validating status")
	})

	t.Run("not found", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)
		ctx := authenticated("user-1")

		repo.On("Patch", ctx, "missing", mock.Anything).Return(webhook.ErrNotFound)

		err := service.UpdateStatus(ctx, "missing", webhook.Processed, "")

		assert.ErrorIs(t, err, webhook.ErrNotFound)
	})

	t.Run("empty message is not written", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)
		service.Now = fixedClock(7000)
		ctx := authenticated("user-1")

		repo.On("Patch", ctx, "webhook-123", webhook.MatchPatch(func(p webhook.Patch) bool {
			return p.Status != nil && *p.Status == webhook.Processed &&
				p.ErrorMessage == nil &&
				p.ProcessedAt != nil && p.ProcessedAt.UnixMilli() == 7000
		})).Return(nil)

		err := service.UpdateStatus(ctx, "webhook-123", webhook.Processed, "")

		require.NoError(t, err)
	})

	t.Run("failed with reason", func(t *testing.T) {
		repo := memory.NewRepository()
		service := webhook.NewService(repo)
		service.Now = fixedClock(1000)
		ctx := authenticated("user-1")

		id, err := service.Ingest(ctx, []byte(`{"a":1}`), "github")
		require.NoError(t, err)

		require.NoError(t, service.UpdateStatus(ctx, id, webhook.Failed, "timeout"))

		wh, err := service.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, wh)
		assert.Equal(t, webhook.Failed, wh.Status)
		assert.Equal(t, "timeout", wh.ErrorMessage)
		assert.NotNil(t, wh.ProcessedAt)
	})

	t.Run("last write wins and an empty message does not clear a previous one", func(t *testing.T) {
		repo := memory.NewRepository()
		service := webhook.NewService(repo)
		service.Now = fixedClock(1000)
		ctx := authenticated("user-1")

		id, err := service.Ingest(ctx, []byte(`{}`), "github")
		require.NoError(t, err)

		require.NoError(t, service.UpdateStatus(ctx, id, webhook.Failed, "timeout"))
		require.NoError(t, service.UpdateStatus(ctx, id, webhook.Processed, ""))

		wh, err := service.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, webhook.Processed, wh.Status)
		assert.Equal(t, "timeout", wh.ErrorMessage)
		require.NotNil(t, wh.ProcessedAt)
		assert.Equal(t, int64(1002), wh.ProcessedAt.UnixMilli())
		assert.Equal(t, int64(1000), wh.ReceivedAt.UnixMilli())
	})

	t.Run("any caller may update any record", func(t *testing.T) {
		repo := memory.NewRepository()
		service := webhook.NewService(repo)

		id, err := service.Create(context.Background(), `{}`, "github", "owner")
		require.NoError(t, err)

		err = service.UpdateStatus(authenticated("someone-else"), id, webhook.Processed, "")
		require.NoError(t, err)
	})
}

func TestRemove(t *testing.T) {
	t.Run("unauthenticated", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)

		err := service.Remove(context.Background(), "webhook-123")

		assert.ErrorIs(t, err, webhook.ErrNotAuthenticated)
	})

	t.Run("unknown id leaves the store unchanged", func(t *testing.T) {
		repo := memory.NewRepository()
		service := webhook.NewService(repo)
		ctx := authenticated("user-1")

		_, err := service.Ingest(ctx, []byte(`{}`), "github")
		require.NoError(t, err)

		err = service.Remove(ctx, "unknown")
		assert.ErrorIs(t, err, webhook.ErrNotFound)

		stats, err := service.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Total)
	})

	t.Run("success", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := webhook.NewService(repo)
		ctx := authenticated("user-1")

		repo.On("Delete", ctx, "webhook-123").Return(nil)

		err := service.Remove(ctx, "webhook-123")

		require.NoError(t, err)
	})
}
