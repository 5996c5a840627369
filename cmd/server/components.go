package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"gymmanager/workout-app/internal/config"
	"gymmanager/workout-app/internal/offline"
	"gymmanager/workout-app/internal/repository"
	"gymmanager/workout-app/internal/repository/mongo"
	"gymmanager/workout-app/internal/repository/sqlite"
	"gymmanager/workout-app/internal/storage"
)

const replayTimeout = 10 * time.Second

// openStore connects the configured local store and brings its schema up to date.
func openStore(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (repository.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		db, err := sqlite.Open(cfg.Path)
		if err != nil {
			return repository.Store{}, err
		}
		log.Info().Str("path", cfg.Path).Msg("sqlite store ready")
		return sqlite.NewStore(db), nil

	case "mongo":
		client, err := mongo.ConnectDB(cfg.URI)
		if err != nil {
			return repository.Store{}, fmt.Errorf("connect mongodb: %w", err)
		}
		indexCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(indexCtx, client.Database(cfg.Name)); err != nil {
			_ = mongo.DisconnectDB(client)
			return repository.Store{}, err
		}
		log.Info().Str("database", cfg.Name).Msg("mongodb store ready")
		return mongo.NewStore(client, cfg.Name), nil

	default:
		return repository.Store{}, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openFileStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.FileStorage, error) {
	switch cfg.Storage.Driver {
	case "", "local":
		return storage.NewLocalStorage(afero.NewOsFs(), cfg.Storage.LocalPath, cfg.Storage.BaseURL, log)
	case "s3":
		return storage.NewS3Storage(ctx, cfg.S3, log)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// openSlot returns the pending-action slot and a cleanup func for any client it opened.
func openSlot(ctx context.Context, cfg config.QueueConfig) (offline.Slot, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Slot {
	case "", "file":
		slot, err := offline.NewFileSlot(afero.NewOsFs(), cfg.Dir, cfg.Key)
		return slot, noop, err
	case "redis":
		client, err := offline.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return offline.NewRedisSlot(client, cfg.Key), client.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported queue slot %q", cfg.Slot)
	}
}

func newReplayer(cfg config.SyncConfig, log zerolog.Logger) (offline.Replayer, error) {
	if cfg.RemoteURL == "" {
		return offline.NewLogReplayer(log), nil
	}
	return offline.NewHTTPReplayer(cfg.RemoteURL, replayTimeout)
}
