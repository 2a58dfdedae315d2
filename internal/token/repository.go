package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryTimeout = 5 * time.Second

// Repository stores tokens in PostgreSQL.
type Repository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs a new Repository. A non-positive timeout selects the default.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Repository{pool: pool, timeout: timeout}
}

// Create persists a new token record.
func (r *Repository) Create(ctx context.Context, tok Token) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
INSERT INTO tokens (token, client_id, created_at, expires_at)
VALUES ($1, $2, $3, $4);`

	if _, err := r.pool.Exec(ctx, query, tok.Value, tok.ClientID, tok.CreatedAt, tok.ExpiresAt); err != nil {
		if isUniqueViolation(err) {
			return ErrTokenExists
		}
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// Get fetches a token by value.
func (r *Repository) Get(ctx context.Context, value string) (Token, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
SELECT token, client_id, created_at, expires_at, consumed_at
FROM tokens
WHERE token = $1;`

	var tok Token
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&tok.Value,
		&tok.ClientID,
		&tok.CreatedAt,
		&tok.ExpiresAt,
		&tok.ConsumedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Token{}, ErrTokenNotFound
		}
		return Token{}, fmt.Errorf("get token: %w", err)
	}
	return tok, nil
}

// MarkConsumed stamps consumed_at on an unconsumed token.
func (r *Repository) MarkConsumed(ctx context.Context, value string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
UPDATE tokens
SET consumed_at = $2
WHERE token = $1 AND consumed_at IS NULL;`

	tag, err := r.pool.Exec(ctx, query, value, at)
	if err != nil {
		return fmt.Errorf("consume token: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE token = $1);`, value).Scan(&exists); err != nil {
		return fmt.Errorf("check token: %w", err)
	}
	if !exists {
		return ErrTokenNotFound
	}
	return ErrTokenConsumed
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
