package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-ledger/number"
)

var _ number.Repository = (*Repository)(nil)

type Repository struct {
	mu      sync.RWMutex
	numbers map[string]number.Number
	byUser  map[string]map[string]struct{}
}

func NewRepository() *Repository {
	return &Repository{
		numbers: make(map[string]number.Number),
		byUser:  make(map[string]map[string]struct{}),
	}
}

func (r *Repository) Get(_ context.Context, id string) (number.Number, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.numbers[id]
	if !ok {
		return number.Number{}, number.ErrNotFound
	}
	return n, nil
}

func (r *Repository) ListByUser(_ context.Context, userID string) ([]number.Number, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byUser[userID]
	result := make([]number.Number, 0, len(ids))
	for id := range ids {
		result = append(result, r.numbers[id])
	}
	return result, nil
}

func (r *Repository) Insert(_ context.Context, n number.Number) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	r.numbers[n.ID] = n
	if r.byUser[n.UserID] == nil {
		r.byUser[n.UserID] = make(map[string]struct{})
	}
	r.byUser[n.UserID][n.ID] = struct{}{}
	return n.ID, nil
}

// Update replaces the value of an existing number. Owner and creation time are kept.
func (r *Repository) Update(_ context.Context, n number.Number) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.numbers[n.ID]
	if !ok {
		return number.ErrNotFound
	}
	existing.Value = n.Value
	r.numbers[n.ID] = existing
	return nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.numbers[id]
	if !ok {
		return number.ErrNotFound
	}
	delete(r.numbers, id)
	delete(r.byUser[n.UserID], id)
	if len(r.byUser[n.UserID]) == 0 {
		delete(r.byUser, n.UserID)
	}
	return nil
}

func (r *Repository) Close(_ context.Context) error {
	return nil
}
