package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecgard/clawdeck/internal/config"
	_ "modernc.org/sqlite"
)

// SQLiteBackend persists slots in a single-file SQLite database.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

// NewSQLiteBackend opens (or creates) the database at path and ensures the
// state_slots table exists.
func NewSQLiteBackend(ctx context.Context, path string) (*SQLiteBackend, error) {
	path = config.ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating sqlite directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, path: path}
	if err := b.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *SQLiteBackend) init(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state_slots (
		name       TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("creating state_slots table: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (b *SQLiteBackend) Path() string {
	return b.path
}

func (b *SQLiteBackend) Load(ctx context.Context, slot string) ([]byte, error) {
	var data string
	err := b.db.QueryRowContext(ctx,
		`SELECT data FROM state_slots WHERE name = ?`, slot,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("loading slot %s: %w", slot, err)
	}
	return []byte(data), nil
}

func (b *SQLiteBackend) Save(ctx context.Context, slot string, data []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO state_slots (name, data, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		slot, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving slot %s: %w", slot, err)
	}
	return nil
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
