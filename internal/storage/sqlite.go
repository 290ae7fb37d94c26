package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zasa-35/oura-visualizer/internal/models"
)

// SQLiteStore keeps snapshots in a local database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS snapshots (
		id          TEXT PRIMARY KEY,
		range_start TEXT NOT NULL,
		range_end   TEXT NOT NULL,
		payload     TEXT NOT NULL,
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating snapshots table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save inserts a row; created_at is the database default.
func (s *SQLiteStore) Save(ctx context.Context, snap models.Snapshot) (*models.SavedSnapshot, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}
	saved := &models.SavedSnapshot{ID: newID(), Start: snap.Start, End: snap.End}
	var created string
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO snapshots (id, range_start, range_end, payload) VALUES (?, ?, ?, ?) RETURNING created_at`,
		saved.ID, snap.Start, snap.End, string(snap.Payload),
	).Scan(&created)
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}
	if saved.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	return saved, nil
}

// Count returns the number of stored snapshots.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
