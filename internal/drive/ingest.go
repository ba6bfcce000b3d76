package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-go/internal/domain"
)

// BatchProcessor runs the reorder pipeline over local files.
type BatchProcessor interface {
	ProcessFiles(ctx context.Context, files []string) (*domain.ProcessResult, error)
}

// IngestService imports a Drive folder and processes the downloaded files as
// one batch.
type IngestService struct {
	downloader  *Downloader
	processor   BatchProcessor
	downloadDir string
}

func NewIngestService(downloader *Downloader, processor BatchProcessor, downloadDir string) *IngestService {
	return &IngestService{
		downloader:  downloader,
		processor:   processor,
		downloadDir: downloadDir,
	}
}

// ImportFolder downloads the folder and processes its files. The folder's
// supplier_data.csv and store_contribution.csv are used as reference data.
func (s *IngestService) ImportFolder(ctx context.Context, folderID string, date time.Time) (*domain.ProcessResult, error) {
	files, err := s.downloader.DownloadFolderCSV(ctx, DownloadOptions{
		FolderID:    folderID,
		DownloadDir: s.downloadDir,
		Date:        date,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download files from Drive: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV or XLSX files found in folder %s", folderID)
	}

	log.Info().Str("folder", folderID).Int("files", len(files)).Msg("processing imported drive files")
	return s.processor.ProcessFiles(ctx, files)
}
