package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/andresuchdata/autopo-go/internal/app"
	"github.com/andresuchdata/autopo-go/internal/config"
	"github.com/andresuchdata/autopo-go/internal/drive"
	"github.com/andresuchdata/autopo-go/internal/ingest"
	"github.com/andresuchdata/autopo-go/internal/service"
	"github.com/andresuchdata/autopo-go/pkg/logger"
)

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.Server.LogLevel)

	ctx := context.Background()

	// Initialize Google Drive service
	driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
	}

	db, err := app.OpenDB(ctx, &cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	runService, err := app.NewRunService(ctx, cfg, db)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize run service")
	}
	reorderCfg, err := service.NewReorderConfig(cfg.Pipeline, cfg.App.DataDir)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid pipeline configuration")
	}

	downloader := drive.NewDownloader(driveService, ingest.NewReader(reorderCfg.Ingest))
	ingestService := drive.NewIngestService(downloader, runService, filepath.Join(cfg.App.UploadDir, "drive"))

	r := mux.NewRouter()
	driveHandler := drive.NewHandler(driveService, ingestService, cfg.Drive.FolderID)
	driveHandler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Log.Info().Str("addr", addr).Msg("Drive import server starting")
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server stopped")
	}
}
