package activity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultListLimit = 100

type Repository struct {
	pool *pgxpool.Pool
}

var _ Recorder = (*Repository)(nil)

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Record(ctx context.Context, e *Entry) error {
	query := `
		INSERT INTO album_activity (op, album, object_key, outcome, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	return r.pool.QueryRow(ctx, query,
		e.Op, e.Album, e.ObjectKey, e.Outcome, e.Message,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *Repository) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT id, op, album, object_key, outcome, message, created_at
	           FROM album_activity ORDER BY created_at DESC, id DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Op, &e.Album, &e.ObjectKey, &e.Outcome, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Migrate applies the schema in sql.
func (r *Repository) Migrate(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}
