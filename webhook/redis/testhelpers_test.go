//go:build integration

package redis_test

import (
	"context"
	"strings"
	"testing"

	"github.com/marcelsud/webhook-ledger/webhook/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ledgerRedis is a throwaway Redis server plus a raw client for asserting on keys
type ledgerRedis struct {
	Addr   string
	Client *goredis.Client
}

// startRedis runs redis in a container for the lifetime of the test
func startRedis(t *testing.T, ctx context.Context) *ledgerRedis {
	t.Helper()

	container, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "starting redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminating redis container: %v", err)
		}
	})

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err, "reading redis connection string")
	addr := strings.TrimPrefix(uri, "redis://")

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	return &ledgerRedis{Addr: addr, Client: client}
}

// repository opens a store against the container, closed with the test
func (lr *ledgerRedis) repository(t *testing.T) *redis.Repository {
	t.Helper()

	repo, err := redis.NewRepository(lr.Addr, "", 0)
	require.NoError(t, err, "opening redis repository")
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return repo
}

func (lr *ledgerRedis) exists(t *testing.T, key string) bool {
	t.Helper()

	n, err := lr.Client.Exists(context.Background(), key).Result()
	require.NoError(t, err)
	return n > 0
}
