// Package memory provides an in-memory webhook.Repository, used by tests and
// single-process deployments.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-ledger/webhook"
)

// compile-time interface check
var _ webhook.Repository = (*Repository)(nil)

var ErrClosed = errors.New("repository closed")

type Repository struct {
	mu      sync.RWMutex
	records map[string]webhook.Webhook
	index   *secondaryIndex
	closed  bool
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{
		records: make(map[string]webhook.Webhook),
		index:   newSecondaryIndex(),
	}
}

// Insert stores a new record and indexes it
func (r *Repository) Insert(_ context.Context, wh webhook.Webhook) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}

	if wh.ID == "" {
		wh.ID = uuid.New().String()
	}
	if _, exists := r.records[wh.ID]; exists {
		return "", fmt.Errorf("%w: %s", webhook.ErrAlreadyExists, wh.ID)
	}

	wh = clone(wh)
	r.records[wh.ID] = wh
	r.index.add(wh)
	return wh.ID, nil
}

// Get retrieves a record by id
func (r *Repository) Get(_ context.Context, id string) (webhook.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return webhook.Webhook{}, ErrClosed
	}

	wh, ok := r.records[id]
	if !ok {
		return webhook.Webhook{}, webhook.ErrNotFound
	}
	return clone(wh), nil
}

// Patch applies a partial update and moves the record between index keys
func (r *Repository) Patch(_ context.Context, id string, patch webhook.Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	old, ok := r.records[id]
	if !ok {
		return webhook.ErrNotFound
	}
	updated := patch.Apply(old)
	r.records[id] = updated
	r.index.move(old, updated)
	return nil
}

// Delete removes a record from the table and every index
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}

	wh, ok := r.records[id]
	if !ok {
		return webhook.ErrNotFound
	}
	delete(r.records, id)
	r.index.remove(wh)
	return nil
}

// Scan returns the records held under (index, key) in ascending receivedAt order
func (r *Repository) Scan(_ context.Context, index webhook.Index, key string) ([]webhook.Webhook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, ErrClosed
	}

	ids := r.index.lookup(index, key)
	result := make([]webhook.Webhook, 0, len(ids))
	for _, id := range ids {
		result = append(result, clone(r.records[id]))
	}
	return result, nil
}

// Close marks the repository as closed
func (r *Repository) Close(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func clone(wh webhook.Webhook) webhook.Webhook {
	if wh.ProcessedAt != nil {
		t := *wh.ProcessedAt
		wh.ProcessedAt = &t
	}
	return wh
}
