// Package app wires configuration into the stores, publishers and services
// shared by the binaries.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-go/internal/cache"
	"github.com/andresuchdata/autopo-go/internal/config"
	"github.com/andresuchdata/autopo-go/internal/drive"
	"github.com/andresuchdata/autopo-go/internal/repository"
	"github.com/andresuchdata/autopo-go/internal/repository/postgres"
	"github.com/andresuchdata/autopo-go/internal/repository/sqlite"
	"github.com/andresuchdata/autopo-go/internal/service"
	"github.com/andresuchdata/autopo-go/internal/storage"
)

// OpenDB connects to the configured run store and applies the schema.
func OpenDB(ctx context.Context, cfg *config.DatabaseConfig) (*repository.DB, error) {
	var (
		db  *repository.DB
		err error
	)

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres":
		db, err = postgres.NewDB(cfg)
	case "pgx":
		db, err = postgres.NewPGXDB(cfg.URL)
	case "", "sqlite", "sqlite3":
		db, err = sqlite.NewDB(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("driver", db.DriverName()).Msg("database ready")
	return db, nil
}

// NewPublisher picks the link publisher for run outputs: Google Drive, then
// MinIO, then Sevalla. Without any of them outputs stay local.
func NewPublisher(ctx context.Context, cfg *config.Config) (storage.LinkPublisher, error) {
	switch {
	case cfg.Drive.CredentialsJSON != "" && cfg.Drive.UploadFolderID != "":
		svc, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON, drive.UploadScope)
		if err != nil {
			return nil, err
		}
		log.Info().Str("folder", cfg.Drive.UploadFolderID).Msg("publishing outputs to google drive")
		return drive.NewPublisher(svc, cfg.Drive.UploadFolderID), nil

	case cfg.MinIO.Endpoint != "":
		client, err := storage.NewMinIOClient(storage.MinIOConfig{
			Endpoint:      cfg.MinIO.Endpoint,
			AccessKey:     cfg.MinIO.AccessKey,
			SecretKey:     cfg.MinIO.SecretKey,
			Bucket:        cfg.MinIO.Bucket,
			UseSSL:        cfg.MinIO.UseSSL,
			Prefix:        "outputs",
			PresignExpiry: time.Duration(cfg.MinIO.PresignExpiry) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("bucket", cfg.MinIO.Bucket).Msg("publishing outputs to minio")
		return client, nil

	case cfg.Sevalla.Endpoint != "":
		client, err := storage.NewSevallaClient(storage.SevallaConfig{
			Endpoint:  cfg.Sevalla.Endpoint,
			AccessKey: cfg.Sevalla.AccessKey,
			SecretKey: cfg.Sevalla.SecretKey,
			Bucket:    cfg.Sevalla.Bucket,
			Region:    cfg.Sevalla.Region,
			UseSSL:    cfg.Sevalla.UseSSL,
			PublicURL: cfg.Sevalla.PublicURL,
			Prefix:    "outputs",
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("bucket", cfg.Sevalla.Bucket).Msg("publishing outputs to sevalla")
		return client, nil
	}

	return storage.NoopPublisher{}, nil
}

// NewRunService assembles the run service. Cache and publisher failures
// degrade to their no-op versions.
func NewRunService(ctx context.Context, cfg *config.Config, db *repository.DB) (*service.RunService, error) {
	reorderCfg, err := service.NewReorderConfig(cfg.Pipeline, cfg.App.DataDir)
	if err != nil {
		return nil, err
	}

	resultsCache, err := cache.NewResultsCache(ctx, cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("results cache unavailable, continuing without it")
		resultsCache = cache.NewNoopResultsCache()
	} else if db.DriverName() == "sqlite3" {
		// A local run store restarts run ids, so cached entries may belong to
		// runs that no longer exist.
		if err := resultsCache.InvalidateAll(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to clear results cache")
		}
	}

	publisher, err := NewPublisher(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("link publisher unavailable, outputs stay local")
		publisher = storage.NoopPublisher{}
	}

	return service.NewRunService(repository.NewRunRepository(db), resultsCache, publisher, reorderCfg, cfg.App.UploadDir), nil
}
