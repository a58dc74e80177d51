package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend persists slots in the state_slots table created by
// `clawdeck migrate`.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to the database and verifies the connection.
func NewPostgresBackend(ctx context.Context, url string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &PostgresBackend{pool: pool}, nil
}

// PoolStat reports connection pool gauges for the metrics collector.
func (b *PostgresBackend) PoolStat() (total, idle, acquired int32) {
	s := b.pool.Stat()
	return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
}

func (b *PostgresBackend) Load(ctx context.Context, slot string) ([]byte, error) {
	var data string
	err := b.pool.QueryRow(ctx,
		`SELECT data FROM state_slots WHERE name = $1`, slot,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("loading slot %s: %w", slot, err)
	}
	return []byte(data), nil
}

func (b *PostgresBackend) Save(ctx context.Context, slot string, data []byte) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO state_slots (name, data, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		slot, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", slot, err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
