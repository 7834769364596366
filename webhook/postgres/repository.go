package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/marcelsud/webhook-ledger/webhook"
)

/*
PostgreSQL implementation of webhook.Repository

Every secondary index is a btree on (column, received_at, id) so a Scan
is a single ordered index range. Timestamps are stored as BIGINT epoch
milliseconds to keep the same resolution as the other stores.
*/

const uniqueViolation = "23505"

const selectColumns = "id, payload, source, status, error_message, user_id, received_at, processed_at"

var _ webhook.Repository = (*Repository)(nil)

type Repository struct {
	DB *sql.DB
}

// NewRepository opens a repository with the default pool (25, 5, 5 min)
func NewRepository(connectionString string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(connectionString, 25, 5, 5)
}

// NewRepositoryWithPoolConfig opens a repository with a custom pool.
// maxOpenConns: maximum simultaneous connections (0 = unlimited)
// maxIdleConns: maximum idle connections kept in the pool
// maxLifeMinutes: maximum time in minutes a connection may be reused
func NewRepositoryWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Repository{
		DB: db,
	}, nil
}

// Insert stores a new webhook and returns its id
func (r *Repository) Insert(ctx context.Context, wh webhook.Webhook) (string, error) {
	if wh.ID == "" {
		wh.ID = uuid.New().String()
	}

	query := `
		INSERT INTO webhooks (id, payload, source, status, error_message, user_id, received_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.DB.ExecContext(ctx, query,
		wh.ID,
		wh.Payload,
		wh.Source,
		wh.Status.String(),
		wh.ErrorMessage,
		nullString(wh.UserID),
		wh.ReceivedAt.UnixMilli(),
		nullMillis(wh.ProcessedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return "", fmt.Errorf("%w: %s", webhook.ErrAlreadyExists, wh.ID)
		}
		return "", fmt.Errorf("inserting webhook: %w", err)
	}

	return wh.ID, nil
}

// Get returns the webhook with the given id
func (r *Repository) Get(ctx context.Context, id string) (webhook.Webhook, error) {
	query := "SELECT " + selectColumns + " FROM webhooks WHERE id = $1"

	wh, err := scanWebhook(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Webhook{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Webhook{}, fmt.Errorf("selecting webhook: %w", err)
	}

	return wh, nil
}

// Patch applies a partial update inside a transaction holding the row lock
func (r *Repository) Patch(ctx context.Context, id string, patch webhook.Patch) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := "SELECT " + selectColumns + " FROM webhooks WHERE id = $1 FOR UPDATE"
	current, err := scanWebhook(tx.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("selecting webhook: %w", err)
	}

	updated := patch.Apply(current)
	update := `
		UPDATE webhooks
		SET status = $1, error_message = $2, processed_at = $3
		WHERE id = $4
	`
	if _, err := tx.ExecContext(ctx, update,
		updated.Status.String(),
		updated.ErrorMessage,
		nullMillis(updated.ProcessedAt),
		id,
	); err != nil {
		return fmt.Errorf("updating webhook: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing webhook update: %w", err)
	}
	return nil
}

// Delete removes a webhook by id
func (r *Repository) Delete(ctx context.Context, id string) error {
	query := "DELETE FROM webhooks WHERE id = $1"

	result, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting webhook: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rows == 0 {
		return webhook.ErrNotFound
	}

	return nil
}

// Scan returns every webhook under one index key in ascending receivedAt order
func (r *Repository) Scan(ctx context.Context, index webhook.Index, key string) ([]webhook.Webhook, error) {
	var (
		rows *sql.Rows
		err  error
	)

	switch index {
	case webhook.BySource:
		rows, err = r.DB.QueryContext(ctx, "SELECT "+selectColumns+" FROM webhooks WHERE source = $1 ORDER BY received_at, id", key)
	case webhook.ByStatus:
		rows, err = r.DB.QueryContext(ctx, "SELECT "+selectColumns+" FROM webhooks WHERE status = $1 ORDER BY received_at, id", key)
	case webhook.ByUser:
		rows, err = r.DB.QueryContext(ctx, "SELECT "+selectColumns+" FROM webhooks WHERE user_id = $1 ORDER BY received_at, id", key)
	case webhook.ByReceivedAt:
		rows, err = r.DB.QueryContext(ctx, "SELECT "+selectColumns+" FROM webhooks ORDER BY received_at, id")
	default:
		return nil, fmt.Errorf("unknown index: %d", index)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting webhooks %s: %w", index, err)
	}
	defer rows.Close()

	webhooks := []webhook.Webhook{}
	for rows.Next() {
		wh, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning webhook: %w", err)
		}
		webhooks = append(webhooks, wh)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating webhooks: %w", err)
	}

	return webhooks, nil
}

// Close closes the database connection
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// CreateTable creates the webhooks table and its index btrees
func (r *Repository) CreateTable(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS webhooks (
			id TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			user_id TEXT,
			received_at BIGINT NOT NULL,
			processed_at BIGINT
		)`,
		`CREATE INDEX IF NOT EXISTS webhooks_by_source ON webhooks (source, received_at, id)`,
		`CREATE INDEX IF NOT EXISTS webhooks_by_status ON webhooks (status, received_at, id)`,
		`CREATE INDEX IF NOT EXISTS webhooks_by_user ON webhooks (user_id, received_at, id)`,
		`CREATE INDEX IF NOT EXISTS webhooks_by_received_at ON webhooks (received_at, id)`,
	}

	for _, statement := range statements {
		if _, err := r.DB.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}

	return nil
}

// DropTable drops the webhooks table
func (r *Repository) DropTable(ctx context.Context) error {
	query := "DROP TABLE IF EXISTS webhooks CASCADE"

	_, err := r.DB.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("dropping table: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWebhook(row rowScanner) (webhook.Webhook, error) {
	var (
		wh          webhook.Webhook
		status      string
		userID      sql.NullString
		receivedAt  int64
		processedAt sql.NullInt64
	)

	if err := row.Scan(
		&wh.ID,
		&wh.Payload,
		&wh.Source,
		&status,
		&wh.ErrorMessage,
		&userID,
		&receivedAt,
		&processedAt,
	); err != nil {
		return webhook.Webhook{}, err
	}

	wh.Status = webhook.NewStatus(status)
	wh.UserID = userID.String
	wh.ReceivedAt = time.UnixMilli(receivedAt)
	if processedAt.Valid {
		t := time.UnixMilli(processedAt.Int64)
		wh.ProcessedAt = &t
	}

	return wh, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}
