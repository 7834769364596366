package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/marcelsud/webhook-ledger/number"
)

var _ number.Repository = (*Repository)(nil)

type Repository struct {
	DB *sql.DB
}

// NewRepository wraps an open connection pool, usually shared with the webhook store
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		DB: db,
	}
}

// Get selects a number by id
func (r *Repository) Get(ctx context.Context, id string) (number.Number, error) {
	query := "SELECT id, value, user_id, created_at FROM numbers WHERE id = $1"

	var (
		n         number.Number
		createdAt int64
	)
	err := r.DB.QueryRowContext(ctx, query, id).Scan(&n.ID, &n.Value, &n.UserID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return number.Number{}, number.ErrNotFound
	}
	if err != nil {
		return number.Number{}, fmt.Errorf("selecting number: %w", err)
	}

	n.CreatedAt = time.UnixMilli(createdAt)
	return n, nil
}

// ListByUser selects every number owned by userID
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]number.Number, error) {
	query := "SELECT id, value, user_id, created_at FROM numbers WHERE user_id = $1"

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("selecting numbers: %w", err)
	}
	defer rows.Close()

	numbers := []number.Number{}
	for rows.Next() {
		var (
			n         number.Number
			createdAt int64
		)
		if err := rows.Scan(&n.ID, &n.Value, &n.UserID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning number: %w", err)
		}
		n.CreatedAt = time.UnixMilli(createdAt)
		numbers = append(numbers, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating numbers: %w", err)
	}

	return numbers, nil
}

// Insert stores a new number and returns its id
func (r *Repository) Insert(ctx context.Context, n number.Number) (string, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	query := `
		INSERT INTO numbers (id, value, user_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.DB.ExecContext(ctx, query, n.ID, n.Value, n.UserID, n.CreatedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("inserting number: %w", err)
	}

	return n.ID, nil
}

// Update changes the value of an existing number
func (r *Repository) Update(ctx context.Context, n number.Number) error {
	query := "UPDATE numbers SET value = $1 WHERE id = $2"

	result, err := r.DB.ExecContext(ctx, query, n.Value, n.ID)
	if err != nil {
		return fmt.Errorf("updating number: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rows == 0 {
		return number.ErrNotFound
	}

	return nil
}

// Delete removes a number by id
func (r *Repository) Delete(ctx context.Context, id string) error {
	query := "DELETE FROM numbers WHERE id = $1"

	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting number: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rows == 0 {
		return number.ErrNotFound
	}

	return nil
}

// Close is a no-op: the pool belongs to whoever opened it
func (r *Repository) Close(ctx context.Context) error {
	return nil
}

// CreateTable creates the numbers table and its owner index
func (r *Repository) CreateTable(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS numbers (
			id TEXT PRIMARY KEY,
			value DOUBLE PRECISION NOT NULL,
			user_id TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS numbers_by_user ON numbers (user_id)`,
	}

	for _, statement := range statements {
		if _, err := r.DB.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}

	return nil
}
