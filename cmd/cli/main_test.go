package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marcelsud/webhook-ledger/config"
	"github.com/marcelsud/webhook-ledger/internal/auth"
	"github.com/marcelsud/webhook-ledger/internal/store"
	"github.com/marcelsud/webhook-ledger/metrics"
	numbermemory "github.com/marcelsud/webhook-ledger/number/memory"
	"github.com/marcelsud/webhook-ledger/webhook"
	"github.com/marcelsud/webhook-ledger/webhook/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keepOpen lets one memory store outlive the commands that close it
type keepOpen struct {
	webhook.Repository
}

func (keepOpen) Close(context.Context) error { return nil }

func run(t *testing.T, repo webhook.Repository, now time.Time, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	d := deps{
		open: func(context.Context, *config.Config) (*store.Stores, error) {
			return &store.Stores{
				Webhooks: keepOpen{repo},
				Numbers:  numbermemory.NewRepository(),
			}, nil
		},
		now: func() time.Time { return now },
		out: &out,
	}
	cmd := newRootCmd(d)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append(args, "--config", t.TempDir()))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := run(t, memory.NewRepository(), time.Now(), "token", "alice")
	require.NoError(t, err)

	claims, err := auth.NewTokenGenerator("cli-secret", time.Hour).Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.UserID)
}

func TestToken_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := run(t, memory.NewRepository(), time.Now(), "token", "alice")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestSeed_Fixtures(t *testing.T) {
	repo := memory.NewRepository()
	now := time.UnixMilli(1_700_000_000_000)
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
webhooks:
  - name: "push"
    source: "github"
    payload: '{"event":"push"}'
  - name: "charge"
    source: "stripe"
    status: "processed"
    payload: '{"type":"charge"}'
`), 0o600))

	out, err := run(t, repo, now, "seed", "--file", path)
	require.NoError(t, err)

	ids := strings.Fields(out)
	require.Len(t, ids, 2)
	wh, err := repo.Get(context.Background(), ids[1])
	require.NoError(t, err)
	assert.Equal(t, "stripe", wh.Source)
	assert.Equal(t, webhook.Processed, wh.Status)
}

func TestSeed_Fake(t *testing.T) {
	repo := memory.NewRepository()

	out, err := run(t, repo, time.Now(), "seed", "--fake", "5", "--seed", "42", "--user", "bob")
	require.NoError(t, err)
	require.Len(t, strings.Fields(out), 5)

	owned, err := repo.Scan(context.Background(), webhook.ByUser, "bob")
	require.NoError(t, err)
	require.Len(t, owned, 5)
	for _, wh := range owned {
		assert.True(t, json.Valid([]byte(wh.Payload)))
		assert.Contains(t, fakeSources, wh.Source)
		assert.Equal(t, webhook.Pending, wh.Status)
	}
}

func TestSeed_RequiresInput(t *testing.T) {
	_, err := run(t, memory.NewRepository(), time.Now(), "seed")
	assert.ErrorContains(t, err, "--file or --fake")
}

func TestStats(t *testing.T) {
	repo := memory.NewRepository()
	now := time.UnixMilli(1_700_000_000_000)
	_, err := run(t, repo, now, "seed", "--fake", "3", "--seed", "7")
	require.NoError(t, err)

	out, err := run(t, repo, now, "stats")
	require.NoError(t, err)

	var m metrics.Metrics
	require.NoError(t, json.Unmarshal([]byte(out), &m))
	assert.Equal(t, int64(3), m.StatusCounts["pending"])
	assert.Equal(t, int64(0), m.StatusCounts["processed"])
	assert.Equal(t, int64(0), m.Throughput.LastMinute)
}
