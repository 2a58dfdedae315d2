package upload

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultQueryTimeout = 5 * time.Second

// Repository appends audit records to PostgreSQL.
type Repository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository builds a new audit repository.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Repository{pool: pool, timeout: timeout}
}

// Append inserts the record as a single statement.
func (r *Repository) Append(ctx context.Context, rec AuditRecord, ifAbsent bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
INSERT INTO upload_audit (id, token, client_id, filename, mimetype, file_url, object_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	if ifAbsent {
		query += `
ON CONFLICT (id) DO NOTHING`
	}

	tag, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.Token,
		rec.ClientID,
		rec.Filename,
		rec.Mimetype,
		rec.FileURL,
		rec.Key,
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	if ifAbsent && tag.RowsAffected() == 0 {
		return ErrRecordExists
	}
	return nil
}
