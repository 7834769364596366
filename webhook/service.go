package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/marcelsud/webhook-ledger/internal/user"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// Ingester accepts webhooks from external senders, without a caller identity
type Ingester interface {
	Ingest(ctx context.Context, payload []byte, source string) (string, error)
}

// Querier provides the read side. Reads never fail for a missing identity,
// they return empty results instead.
type Querier interface {
	List(ctx context.Context, opts ListOptions) ([]Webhook, error)
	Get(ctx context.Context, id string) (*Webhook, error)
	ListByUser(ctx context.Context, limit int) ([]Webhook, error)
	Stats(ctx context.Context) (*Stats, error)
}

// Lifecycle provides the write side for authenticated callers
type Lifecycle interface {
	Create(ctx context.Context, payload, source, userID string) (string, error)
	UpdateStatus(ctx context.Context, id string, status Status, errorMessage string) error
	Remove(ctx context.Context, id string) error
}

// UseCase defines the business operations for webhook management
type UseCase interface {
	Ingester
	Querier
	Lifecycle
}

// ListOptions filters List. Source takes precedence over Status when both are set;
// a non-positive Limit returns everything.
type ListOptions struct {
	Source string
	Status Status
	Limit  int
}

type Service struct {
	Repo Repository
	Now  func() time.Time
}

// NewService creates a new webhook service with dependency injection
func NewService(repo Repository) *Service {
	return &Service{
		Repo: repo,
		Now:  time.Now,
	}
}

// Ingest validates an inbound body and stores it as a pending record.
// Invalid UTF-8 sequences are replaced with U+FFFD before validation, so every
// store keeps the same text.
func (s *Service) Ingest(ctx context.Context, payload []byte, source string) (string, error) {
	payload = bytes.ToValidUTF8(payload, []byte("\uFFFD"))
	if !json.Valid(payload) {
		return "", ErrInvalidPayload
	}
	if source == "" {
		source = UnknownSource
	}

	id, err := s.Repo.Insert(ctx, Webhook{
		Payload:    string(payload),
		Source:     source,
		Status:     Pending,
		ReceivedAt: s.now(),
	})
	if err != nil {
		return "", fmt.Errorf("storing webhook: %w", err)
	}
	return id, nil
}

// Create records a webhook explicitly, optionally owned by userID
func (s *Service) Create(ctx context.Context, payload, source, userID string) (string, error) {
	id, err := s.Repo.Insert(ctx, Webhook{
		Payload:    payload,
		Source:     source,
		Status:     Pending,
		UserID:     userID,
		ReceivedAt: s.now(),
	})
	if err != nil {
		return "", fmt.Errorf("creating webhook: %w", err)
	}
	return id, nil
}

// List returns records most-recent-first, filtered by source or status
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Webhook, error) {
	if _, ok := user.FromContext(ctx); !ok {
		return []Webhook{}, nil
	}

	index, key := ByReceivedAt, ""
	switch {
	case opts.Source != "":
		index, key = BySource, opts.Source
	case opts.Status != 0:
		index, key = ByStatus, opts.Status.String()
	}

	all, err := s.Repo.Scan(ctx, index, key)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", index, err)
	}
	return limit(sortRecent(all), opts.Limit), nil
}

// Get returns the record with the given id, or nil when absent
func (s *Service) Get(ctx context.Context, id string) (*Webhook, error) {
	if _, ok := user.FromContext(ctx); !ok {
		return nil, nil
	}

	wh, err := s.Repo.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting webhook: %w", err)
	}
	return &wh, nil
}

// ListByUser returns the caller's own records most-recent-first
func (s *Service) ListByUser(ctx context.Context, n int) ([]Webhook, error) {
	u, ok := user.FromContext(ctx)
	if !ok {
		return []Webhook{}, nil
	}

	all, err := s.Repo.Scan(ctx, ByUser, u.ID)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", ByUser, err)
	}
	return limit(sortRecent(all), n), nil
}

// Stats counts every record in the table by status
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	if _, ok := user.FromContext(ctx); !ok {
		return nil, nil
	}

	all, err := s.Repo.Scan(ctx, ByReceivedAt, "")
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", ByReceivedAt, err)
	}
	stats := &Stats{}
	for _, wh := range all {
		stats.Add(wh.Status)
	}
	return stats, nil
}

// UpdateStatus sets the status and stamps processedAt. An empty errorMessage
// is never written, so a previous message cannot be cleared.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, errorMessage string) error {
	if _, ok := user.FromContext(ctx); !ok {
		return ErrNotAuthenticated
	}
	if err := status.Validate(); err != nil {
		return fmt.Errorf("validating status: %w", err)
	}

	now := s.now()
	patch := Patch{
		Status:      &status,
		ProcessedAt: &now,
	}
	if errorMessage != "" {
		patch.ErrorMessage = &errorMessage
	}

	if err := s.Repo.Patch(ctx, id, patch); err != nil {
		return fmt.Errorf("updating webhook status: %w", err)
	}
	return nil
}

// Remove deletes a record. Any authenticated caller may remove any record.
func (s *Service) Remove(ctx context.Context, id string) error {
	if _, ok := user.FromContext(ctx); !ok {
		return ErrNotAuthenticated
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("removing webhook: %w", err)
	}
	return nil
}

// now truncates to the millisecond precision records are persisted with
func (s *Service) now() time.Time {
	return time.UnixMilli(s.Now().UnixMilli())
}

func sortRecent(whs []Webhook) []Webhook {
	sort.SliceStable(whs, func(i, j int) bool {
		return whs[i].ReceivedAt.After(whs[j].ReceivedAt)
	})
	return whs
}

func limit(whs []Webhook, n int) []Webhook {
	if whs == nil {
		return []Webhook{}
	}
	if n > 0 && n < len(whs) {
		return whs[:n]
	}
	return whs
}
