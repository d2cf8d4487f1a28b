// Package bootstrap opens the configured storage backend and builds the process logger.
// Both binaries share it.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"alcyxob/workout-journal/internal/config"
	"alcyxob/workout-journal/internal/repository"
	"alcyxob/workout-journal/internal/repository/memory"
	"alcyxob/workout-journal/internal/repository/mongo"
	"alcyxob/workout-journal/internal/repository/postgres"
)

// Stores bundles the repository ports backed by one driver.
type Stores struct {
	Users    repository.UserRepository
	Catalog  repository.CatalogRepository
	Workouts repository.WorkoutRepository
	Dialogs  repository.DialogRepository
	Locks    repository.LockRepository

	close func() error
}

// Close releases the backend connection.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStores connects to the driver named in cfg.Driver.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, err := mongo.ConnectDB(ctx, cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(cfg.Name)

		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(indexCtx, db); err != nil {
			_ = mongo.DisconnectDB(client)
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		return &Stores{
			Users:    mongo.NewMongoUserRepository(db),
			Catalog:  mongo.NewMongoCatalogRepository(db),
			Workouts: mongo.NewMongoWorkoutRepository(db),
			Dialogs:  mongo.NewMongoDialogRepository(db),
			Locks:    mongo.NewMongoLockRepository(db),
			close:    func() error { return mongo.DisconnectDB(client) },
		}, nil

	case config.DriverPostgres:
		db, err := postgres.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Stores{
			Users:    db,
			Catalog:  db,
			Workouts: db,
			Dialogs:  db,
			Locks:    db,
			close:    db.Close,
		}, nil

	case config.DriverMemory:
		db := memory.New()
		return &Stores{
			Users:    db,
			Catalog:  db,
			Workouts: db,
			Dialogs:  db,
			Locks:    db,
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
