package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-ledger/webhook"
	"github.com/redis/go-redis/v9"
)

/* Redis implementation of webhook.Repository
 * Uses one Redis Hash per record for the record itself
 * Uses one Sorted Set per index key, scored by receivedAt in milliseconds
 */

const (
	hashPrefix  = "webhook"      // Hash naming: webhook:{webhook_id}
	indexPrefix = "webhooks:idx" // Sorted set naming: webhooks:idx:{index}:{key} or webhooks:idx:by_received_at
	maxRetries  = 5              // Optimistic transaction retries on concurrent writes to the same record
)

var _ webhook.Repository = (*Repository)(nil)

type Repository struct {
	client *redis.Client
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return NewRepositoryWithClient(client), nil
}

// NewRepositoryWithClient wraps an existing client
func NewRepositoryWithClient(client *redis.Client) *Repository {
	return &Repository{
		client: client,
	}
}

// Insert stores the record hash and adds it to every index in one transaction.
// The existence check runs under WATCH so a concurrent insert of the same id fails.
func (r *Repository) Insert(ctx context.Context, wh webhook.Webhook) (string, error) {
	if wh.ID == "" {
		wh.ID = uuid.New().String()
	}
	hashKey := getHashKey(wh.ID)

	txf := func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, hashKey).Result()
		if err != nil {
			return fmt.Errorf("checking webhook existence: %w", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", webhook.ErrAlreadyExists, wh.ID)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hashKey, toHash(wh))
			score := float64(wh.ReceivedAt.UnixMilli())
			for _, index := range webhook.Indexes() {
				if key, ok := index.Key(wh); ok {
					pipe.ZAdd(ctx, getIndexKey(index, key), redis.Z{Score: score, Member: wh.ID})
				}
			}
			return nil
		})
		return err
	}

	if err := r.watch(ctx, hashKey, txf, "storing webhook"); err != nil {
		return "", err
	}
	return wh.ID, nil
}

// Get retrieves a webhook by ID from Redis hash
func (r *Repository) Get(ctx context.Context, id string) (webhook.Webhook, error) {
	data, err := r.client.HGetAll(ctx, getHashKey(id)).Result()
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("getting webhook: %w", err)
	}
	if len(data) == 0 {
		return webhook.Webhook{}, webhook.ErrNotFound
	}
	return fromHash(data), nil
}

// Patch updates the record hash and moves it between index keys atomically
func (r *Repository) Patch(ctx context.Context, id string, patch webhook.Patch) error {
	hashKey := getHashKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGetAll(ctx, hashKey).Result()
		if err != nil {
			return fmt.Errorf("getting webhook: %w", err)
		}
		if len(data) == 0 {
			return webhook.ErrNotFound
		}
		old := fromHash(data)
		updated := patch.Apply(old)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			fields := toHash(updated)
			pipe.HSet(ctx, hashKey, fields)
			score := float64(old.ReceivedAt.UnixMilli())
			for _, index := range webhook.Indexes() {
				oldKey, oldOK := index.Key(old)
				newKey, newOK := index.Key(updated)
				if oldKey == newKey && oldOK == newOK {
					continue
				}
				if oldOK {
					pipe.ZRem(ctx, getIndexKey(index, oldKey), id)
				}
				if newOK {
					pipe.ZAdd(ctx, getIndexKey(index, newKey), redis.Z{Score: score, Member: id})
				}
			}
			return nil
		})
		return err
	}

	return r.watch(ctx, hashKey, txf, "patching webhook")
}

// Delete removes the record hash and its index entries atomically
func (r *Repository) Delete(ctx context.Context, id string) error {
	hashKey := getHashKey(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.HGetAll(ctx, hashKey).Result()
		if err != nil {
			return fmt.Errorf("getting webhook: %w", err)
		}
		if len(data) == 0 {
			return webhook.ErrNotFound
		}
		wh := fromHash(data)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, hashKey)
			for _, index := range webhook.Indexes() {
				if key, ok := index.Key(wh); ok {
					pipe.ZRem(ctx, getIndexKey(index, key), id)
				}
			}
			return nil
		})
		return err
	}

	return r.watch(ctx, hashKey, txf, "deleting webhook")
}

// Scan reads the ids of one index key and loads their hashes in a single pipeline.
// Records no longer matching the key when loaded are skipped.
func (r *Repository) Scan(ctx context.Context, index webhook.Index, key string) ([]webhook.Webhook, error) {
	if index == webhook.ByReceivedAt {
		key = ""
	}

	ids, err := r.client.ZRange(ctx, getIndexKey(index, key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading %s index: %w", index, err)
	}
	if len(ids) == 0 {
		return []webhook.Webhook{}, nil
	}

	// Use pipeline for efficient batch operations
	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, getHashKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("executing pipeline: %w", err)
	}

	webhooks := make([]webhook.Webhook, 0, len(ids))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil || len(data) == 0 {
			// Deleted between the index read and the hash read
			continue
		}
		wh := fromHash(data)
		// Patched off this index key between the index read and the hash read
		if k, ok := index.Key(wh); !ok || k != key {
			continue
		}
		webhooks = append(webhooks, wh)
	}

	return webhooks, nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

func (r *Repository) watch(ctx context.Context, key string, txf func(*redis.Tx) error, op string) error {
	for i := 0; i < maxRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, webhook.ErrNotFound) || errors.Is(err, webhook.ErrAlreadyExists) {
			return err
		}
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}
	return fmt.Errorf("%s: too many concurrent writes to %s", op, key)
}

// Helper functions

func getHashKey(id string) string {
	return fmt.Sprintf("%s:%s", hashPrefix, id)
}

func getIndexKey(index webhook.Index, key string) string {
	if index == webhook.ByReceivedAt {
		return fmt.Sprintf("%s:%s", indexPrefix, index)
	}
	return fmt.Sprintf("%s:%s:%s", indexPrefix, index, key)
}

func toHash(wh webhook.Webhook) map[string]interface{} {
	fields := map[string]interface{}{
		"id":            wh.ID,
		"payload":       wh.Payload,
		"source":        wh.Source,
		"status":        wh.Status.String(),
		"error_message": wh.ErrorMessage,
		"user_id":       wh.UserID,
		"received_at":   wh.ReceivedAt.UnixMilli(),
		"processed_at":  "",
	}
	if wh.ProcessedAt != nil {
		fields["processed_at"] = wh.ProcessedAt.UnixMilli()
	}
	return fields
}

func fromHash(data map[string]string) webhook.Webhook {
	wh := webhook.Webhook{
		ID:           data["id"],
		Payload:      data["payload"],
		Source:       data["source"],
		Status:       webhook.NewStatus(data["status"]),
		ErrorMessage: data["error_message"],
		UserID:       data["user_id"],
		ReceivedAt:   time.UnixMilli(parseInt64(data["received_at"])),
	}
	if processedAt := data["processed_at"]; processedAt != "" {
		t := time.UnixMilli(parseInt64(processedAt))
		wh.ProcessedAt = &t
	}
	return wh
}

func parseInt64(s string) int64 {
	result, _ := strconv.ParseInt(s, 10, 64)
	return result
}
