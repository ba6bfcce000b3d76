package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-go/internal/ingest"
	"github.com/andresuchdata/autopo-go/internal/pipeline/reorder"
)

// FileSource lists and downloads the files of a remote folder. *Service
// implements it.
type FileSource interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
	// Date overrides the snapshot date prefix; zero uses each file's
	// modification time.
	Date time.Time
}

// Downloader pulls store files of a Drive folder into a local directory.
type Downloader struct {
	source FileSource
	reader *ingest.Reader
	now    func() time.Time
}

// NewDownloader creates a new Downloader. Workbooks are converted to CSV with
// reader so spreadsheet error cells become zeros.
func NewDownloader(source FileSource, reader *ingest.Reader) *Downloader {
	if reader == nil {
		reader = ingest.NewReader(ingest.DefaultConfig())
	}
	return &Downloader{source: source, reader: reader, now: time.Now}
}

// DownloadFolderCSV downloads all CSV and XLSX files of the folder into
// DownloadDir as "<YYYYMMDD>_<name>.csv" and returns the local paths.
//
//   - CSV files are downloaded directly.
//   - XLSX files are downloaded to a temporary .xlsx, converted to CSV and
//     the temporary file is removed.
func (d *Downloader) DownloadFolderCSV(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.source.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		name := d.snapshotDate(f, opts.Date).Format(reorder.SnapshotDateLayout) + "_" + f.Name
		localPath := filepath.Join(opts.DownloadDir, name)
		if err := d.download(ctx, f, localPath); err != nil {
			return nil, err
		}

		if ext == ".xlsx" {
			csvPath := strings.TrimSuffix(localPath, filepath.Ext(localPath)) + ".csv"
			if err := convertXLSXToCSV(d.reader, localPath, csvPath); err != nil {
				return nil, fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
			}
			if err := os.Remove(localPath); err != nil {
				log.Warn().Str("file", localPath).Err(err).Msg("failed to remove downloaded workbook")
			}
			localPath = csvPath
		}

		log.Info().Str("file", f.Name).Str("path", localPath).Msg("downloaded drive file")
		localPaths = append(localPaths, localPath)
	}

	return localPaths, nil
}

func (d *Downloader) download(ctx context.Context, f *File, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	if err := d.source.DownloadFile(ctx, f.ID, out); err != nil {
		out.Close()
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return out.Close()
}

func (d *Downloader) snapshotDate(f *File, override time.Time) time.Time {
	if !override.IsZero() {
		return override
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		return t
	}
	return d.now()
}
