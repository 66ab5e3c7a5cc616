package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresBackend stores blobs in the progress_records table (see database.Migrate).
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a PostgreSQL-backed progress backend.
func NewPostgresBackend(pool *pgxpool.Pool) (*PostgresBackend, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresBackend{pool: pool}, nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var payload string
	err := b.pool.QueryRow(ctx,
		`SELECT payload::text FROM progress_records WHERE key = $1`,
		key,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get progress: %w", err)
	}
	return []byte(payload), true, nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, blob []byte) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := b.pool.Exec(ctx,
		`INSERT INTO progress_records (key, payload, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (key) DO UPDATE
		 SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		key,
		string(blob),
	)
	if err != nil {
		return fmt.Errorf("put progress: %w", err)
	}
	return nil
}
