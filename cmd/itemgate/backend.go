package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/config"
	"github.com/sagarc03/itemgate/database"
	"github.com/sagarc03/itemgate/filesystem"
	"github.com/sagarc03/itemgate/s3store"
)

// openBackend opens the object backend selected by cfg. The returned close
// function releases it and is never nil.
func openBackend(ctx context.Context, cfg config.StorageConfig, autoMigrate bool) (itemgate.ObjectBackend, func(), error) {
	switch cfg.Type {
	case config.StorageFilesystem:
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, nil, fmt.Errorf("create storage directory: %w", err)
		}

		root, err := os.OpenRoot(cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open storage root: %w", err)
		}

		slog.Info("using filesystem storage", "path", cfg.Path)
		return filesystem.NewFileStorage(root), func() { _ = root.Close() }, nil

	case config.StorageS3:
		store, err := s3store.New(ctx, cfg.S3)
		if err != nil {
			return nil, nil, err
		}

		slog.Info("using s3 storage", "bucket", cfg.S3.Bucket, "region", cfg.S3.Region, "prefix", cfg.S3.Prefix)
		return store, func() {}, nil

	case config.StorageSQLite, config.StoragePostgres:
		db, err := database.Open(ctx, cfg.DatabaseConfig(), autoMigrate)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}

		slog.Info("using database storage", "type", cfg.Type, "table", cfg.Database.Tables.Objects)
		return db.Backend(), func() { _ = db.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// newItemStore builds the gateway facade from the loaded configuration.
func newItemStore(cfg *config.Config, backend itemgate.ObjectBackend) (*itemgate.ItemStore, error) {
	storeCfg := itemgate.StoreConfig{
		Quota: itemgate.Quota{
			MaxBytes: cfg.Quota.MaxBytes,
			MaxItems: cfg.Quota.MaxItems,
		},
		CleanupTimeout: time.Duration(cfg.Service.CleanupTimeout) * time.Second,
	}

	if cfg.Variants.Enabled {
		storeCfg.Renderer = itemgate.NewImageRenderer(cfg.Variants.PreviewSize, cfg.Variants.PreferredSize)
	}

	store, err := itemgate.NewItemStore(backend, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("create item store: %w", err)
	}
	return store, nil
}
