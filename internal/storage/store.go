// Package storage persists dashboard snapshots. Every backend is
// append-only and assigns created_at itself.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/zasa-35/oura-visualizer/internal/config"
	"github.com/zasa-35/oura-visualizer/internal/models"
)

// ErrInvalidSnapshot is returned for snapshots missing bounds or payload.
var ErrInvalidSnapshot = errors.New("snapshot needs start, end and payload")

// Store appends snapshots.
type Store interface {
	Save(ctx context.Context, snap models.Snapshot) (*models.SavedSnapshot, error)
	Close() error
}

// Open builds the store selected by cfg.Backend. It returns (nil, nil) for
// the "none" backend.
func Open(ctx context.Context, cfg config.StoreConfig, log *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendPostgres:
		dsn := cfg.Postgres.DSN()
		if err := RunMigrations(dsn); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
		return NewPostgres(ctx, dsn)
	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLite.Path)
	case config.BackendAzureBlob:
		return NewBlobStore(cfg.AzureBlob)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func validate(snap models.Snapshot) error {
	if snap.Start == "" || snap.End == "" || len(snap.Payload) == 0 {
		return ErrInvalidSnapshot
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}
