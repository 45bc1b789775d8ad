package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gallery/internal/bucket"
	"gallery/internal/catalog"
	"gallery/internal/lock"
	"gallery/internal/models"
	"gallery/internal/raster"
	"gallery/internal/storage"
	"gallery/internal/upload"
)

// memoryFilesPath is where the server exposes bytes held by the in-memory
// store.
const memoryFilesPath = "/files"

func newLogger(json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// app is the catalog stack shared by serve and upload.
type app struct {
	store   catalog.Store
	memory  *storage.Memory
	db      *storage.Storage
	catalog *catalog.Client
	uploads *upload.Orchestrator
	closers []func()
}

// newApp connects the configured backends. Without a database and MinIO
// endpoint the catalog lives in memory.
func newApp(ctx context.Context, cfg *models.Config, logger *slog.Logger) (*app, error) {
	const op = "main.newApp"

	a := &app{}

	if cfg.DatabaseURL != "" && cfg.MinIO.Endpoint != "" {
		db, err := storage.NewStorage(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.db = db
		a.closers = append(a.closers, db.Close)

		blobs, err := storage.NewBlobs(ctx, cfg.MinIO, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.store = storage.NewRemote(db, blobs, logger)
		logger.Info("using remote asset store", slog.String("bucket", cfg.MinIO.Bucket))
	} else {
		a.memory = storage.NewMemory(memoryFilesPath)
		a.store = a.memory
		logger.Warn("no database or object store configured, assets are kept in memory")
	}

	var locker lock.Locker = lock.NewMemory()
	if cfg.RedisURL != "" {
		client, err := lock.NewRedisClient(ctx, cfg.RedisURL, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		locker = lock.NewRedis(client, "gallery:lock:", logger)
	}

	aspects, err := bucket.AspectsFromConfig(cfg.Aspects)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a.catalog = catalog.New(a.store, catalog.Options{
		Group: cfg.Catalog.GroupPath,
		Limit: cfg.Catalog.ListLimit,
		Hints: models.TransformHints{
			MaxDimension: cfg.Catalog.MaxDimension,
			Quality:      cfg.Catalog.StoreQuality,
		},
	})
	a.uploads = upload.New(a.catalog, upload.Config{
		Aspects:    aspects,
		Rasterizer: raster.New(cfg.Catalog.CropQuality),
		Locker:     locker,
		MaxPixels:  cfg.Catalog.MaxPixels,
	}, logger)

	return a, nil
}

func (a *app) health(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Ping(ctx)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
