package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-go/internal/app"
	"github.com/andresuchdata/autopo-go/internal/config"
	"github.com/andresuchdata/autopo-go/internal/drive"
	"github.com/andresuchdata/autopo-go/internal/ingest"
	"github.com/andresuchdata/autopo-go/internal/pipeline/reorder"
	"github.com/andresuchdata/autopo-go/internal/service"
	"github.com/andresuchdata/autopo-go/pkg/logger"
)

func newDataDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "data-dir",
		Usage:   "Directory receiving per-store outputs and result.csv",
		Value:   "./data/output",
		EnvVars: []string{"APP_DATA_DIR"},
	}
}

func newWorkersFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "workers",
		Usage:   "Number of store files processed concurrently (0 = NumCPU)",
		EnvVars: []string{"PIPELINE_WORKERS"},
	}
}

func newPolicyFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "supplier-policy",
		Usage:   "Supplier resolution policy: brand_store or brand_only",
		Value:   string(reorder.PolicyBrandStore),
		EnvVars: []string{"SUPPLIER_POLICY"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Err(err).Msg("no .env file loaded")
	}

	cliApp := &cli.App{
		Name:  "autopo",
		Usage: "Compute purchase order recommendations from store inventory exports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug, info, warn or error",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Process store files from the command line",
				ArgsUsage: "[files...]",
				Flags: []cli.Flag{
					newDataDirFlag(),
					newWorkersFlag(),
					newPolicyFlag(),
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Process every CSV or XLSX file of this directory",
					},
					&cli.StringFlag{
						Name:  "supplier-file",
						Usage: "Supplier catalog (defaults to supplier_data.csv among the inputs)",
					},
					&cli.StringFlag{
						Name:  "contribution-file",
						Usage: "Store contribution table (defaults to store_contribution.csv among the inputs)",
					},
				},
				Action: runProcess,
			},
			{
				Name:  "drive-import",
				Usage: "Download a Google Drive folder and process it as one batch",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "folder-id",
						Usage:   "Google Drive folder ID",
						EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
					},
					&cli.StringFlag{
						Name:  "date",
						Usage: "Snapshot date prefix (YYYYMMDD); defaults to each file's modification date",
					},
				},
				Action: runDriveImport,
			},
			{
				Name:  "sevalla-download",
				Usage: "Download store files from Sevalla object storage",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "sevalla-endpoint", EnvVars: []string{"SEVALLA_ENDPOINT"}, Required: true},
					&cli.StringFlag{Name: "sevalla-access-key", EnvVars: []string{"SEVALLA_ACCESS_KEY"}},
					&cli.StringFlag{Name: "sevalla-secret-key", EnvVars: []string{"SEVALLA_SECRET_KEY"}},
					&cli.StringFlag{Name: "sevalla-bucket", EnvVars: []string{"SEVALLA_BUCKET"}, Required: true},
					&cli.StringFlag{Name: "sevalla-region", EnvVars: []string{"SEVALLA_REGION"}, Value: "us-east-1"},
					&cli.BoolFlag{Name: "sevalla-use-ssl", EnvVars: []string{"SEVALLA_USE_SSL"}, Value: true},
					&cli.StringFlag{
						Name:    "sevalla-download-dir",
						Usage:   "Local directory receiving the files",
						Value:   "./data/uploads/sevalla",
						EnvVars: []string{"SEVALLA_DOWNLOAD_DIR"},
					},
					&cli.StringFlag{Name: "prefix", Usage: "Object key prefix to download"},
					&cli.StringFlag{Name: "key", Usage: "Download a single object (relative to prefix)"},
				},
				Action: runSevallaDownload,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("autopo failed")
	}
}

func runProcess(c *cli.Context) error {
	files, err := collectInputFiles(c.Args().Slice(), c.String("dir"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no input files given")
	}

	cfg, err := service.NewReorderConfig(config.PipelineConfig{
		Workers:        c.Int("workers"),
		SupplierPolicy: c.String("supplier-policy"),
		LocaleNumbers:  true,
	}, c.String("data-dir"))
	if err != nil {
		return err
	}

	start := time.Now()
	out, err := reorder.RunBatch(c.Context, cfg, reorder.BatchInput{
		Files:            files,
		SupplierPath:     c.String("supplier-file"),
		ContributionPath: c.String("contribution-file"),
	}, nil)
	if err != nil {
		return err
	}

	for _, s := range out.Summaries {
		event := logger.Log.Info()
		if s.Status == "error" {
			event = logger.Log.Error().Str("error", s.Error)
		}
		event.Str("file", s.FileName).
			Str("location", s.Location).
			Float64("contribution_pct", s.ContributionPct).
			Int("rows", s.TotalRows).
			Int("no_supplier", s.NoSupplier).
			Dur("took", s.ProcessingTime).
			Msg("store processed")
	}

	logger.Log.Info().
		Int("files", len(out.Files)).
		Int("failed", len(out.Errors)).
		Int("skus", out.Summary.TotalSKUs).
		Int("items_to_order", out.Summary.ItemsToOrder).
		Float64("emergency_cost", out.Summary.TotalEmergencyPOCost).
		Float64("regular_cost", out.Summary.TotalRegularPOCost).
		Str("result", out.ResultPath).
		Dur("took", time.Since(start)).
		Msg("batch complete")
	return nil
}

func runDriveImport(c *cli.Context) error {
	cfg := config.Load()
	folderID := c.String("folder-id")
	if folderID == "" {
		return fmt.Errorf("folder-id is required")
	}

	var date time.Time
	if raw := c.String("date"); raw != "" {
		parsed, err := time.Parse(reorder.SnapshotDateLayout, raw)
		if err != nil {
			return fmt.Errorf("invalid date %q: %w", raw, err)
		}
		date = parsed
	}

	driveService, err := drive.NewService(c.Context, cfg.Drive.CredentialsJSON)
	if err != nil {
		return err
	}

	db, err := app.OpenDB(c.Context, &cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	runService, err := app.NewRunService(c.Context, cfg, db)
	if err != nil {
		return err
	}
	reorderCfg, err := service.NewReorderConfig(cfg.Pipeline, cfg.App.DataDir)
	if err != nil {
		return err
	}

	downloader := drive.NewDownloader(driveService, ingest.NewReader(reorderCfg.Ingest))
	ingestService := drive.NewIngestService(downloader, runService, filepath.Join(cfg.App.UploadDir, "drive"))

	result, err := ingestService.ImportFolder(c.Context, folderID, date)
	if err != nil {
		return err
	}
	logger.Log.Info().
		Str("status", result.Status).
		Int("stores", len(result.Stores)).
		Int("skus", result.Summary.TotalSKUs).
		Msg(result.Message)
	return nil
}

func runSevallaDownload(c *cli.Context) error {
	d, err := newSevallaDownloader(c)
	if err != nil {
		return err
	}
	paths, err := d.download(c.Context, c.String("prefix"), c.String("key"))
	if err != nil {
		return err
	}
	for _, p := range paths {
		logger.Log.Info().Str("path", p).Msg("downloaded")
	}
	return nil
}

// collectInputFiles returns args plus the supported files of dir, sorted by
// name within dir.
func collectInputFiles(args []string, dir string) ([]string, error) {
	files := append([]string(nil), args...)
	if dir == "" {
		return files, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".csv", ".txt", ".xlsx", ".xlsm":
			found = append(found, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(found)
	return append(files, found...), nil
}
