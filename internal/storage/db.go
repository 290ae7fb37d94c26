package storage

import (
	"context"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zasa-35/oura-visualizer/internal/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps snapshots in the snapshots table.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

// NewPostgres creates a store with a connection pool.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresStore{Pool: pool}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.Pool.Close()
	return nil
}

// RunMigrations applies all pending embedded migrations.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Save inserts a row; created_at comes from the database clock.
func (s *PostgresStore) Save(ctx context.Context, snap models.Snapshot) (*models.SavedSnapshot, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}
	saved := &models.SavedSnapshot{ID: newID(), Start: snap.Start, End: snap.End}
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO snapshots (id, range_start, range_end, payload)
		 VALUES ($1, $2::date, $3::date, $4::jsonb)
		 RETURNING created_at`,
		saved.ID, snap.Start, snap.End, string(snap.Payload),
	).Scan(&saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}
	return saved, nil
}
