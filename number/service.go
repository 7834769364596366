package number

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/marcelsud/webhook-ledger/internal/user"
)

type UseCase interface {
	List(ctx context.Context) ([]Number, error)
	Create(ctx context.Context, value float64) (string, error)
	Update(ctx context.Context, id string, value float64) error
	Remove(ctx context.Context, id string) error
}

type Service struct {
	Repo Repository
	Now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		Repo: repo,
		Now:  time.Now,
	}
}

// List returns the caller's numbers, newest first. Anonymous callers get an empty list.
func (s *Service) List(ctx context.Context) ([]Number, error) {
	u, ok := user.FromContext(ctx)
	if !ok {
		return []Number{}, nil
	}

	all, err := s.Repo.ListByUser(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("listing numbers: %w", err)
	}
	if all == nil {
		return []Number{}, nil
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}

func (s *Service) Create(ctx context.Context, value float64) (string, error) {
	u, ok := user.FromContext(ctx)
	if !ok {
		return "", ErrNotAuthenticated
	}

	id, err := s.Repo.Insert(ctx, Number{
		Value:     value,
		UserID:    u.ID,
		CreatedAt: time.UnixMilli(s.Now().UnixMilli()),
	})
	if err != nil {
		return "", fmt.Errorf("inserting number: %w", err)
	}
	return id, nil
}

func (s *Service) Update(ctx context.Context, id string, value float64) error {
	n, err := s.owned(ctx, id)
	if err != nil {
		return err
	}

	n.Value = value
	if err := s.Repo.Update(ctx, n); err != nil {
		return fmt.Errorf("updating number: %w", err)
	}
	return nil
}

func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := s.owned(ctx, id); err != nil {
		return err
	}

	if err := s.Repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting number: %w", err)
	}
	return nil
}

// owned loads a number and checks it belongs to the caller
func (s *Service) owned(ctx context.Context, id string) (Number, error) {
	u, ok := user.FromContext(ctx)
	if !ok {
		return Number{}, ErrNotAuthenticated
	}

	n, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Number{}, fmt.Errorf("selecting number: %w", err)
	}
	if n.UserID != u.ID {
		return Number{}, ErrNotAuthorized
	}
	return n, nil
}
