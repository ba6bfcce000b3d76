package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/autopo-go/internal/cache"
	"github.com/andresuchdata/autopo-go/internal/config"
	"github.com/andresuchdata/autopo-go/internal/domain"
	"github.com/andresuchdata/autopo-go/internal/pipeline"
	"github.com/andresuchdata/autopo-go/internal/pipeline/reorder"
	"github.com/andresuchdata/autopo-go/internal/repository"
	"github.com/andresuchdata/autopo-go/internal/storage"
)

// ErrInvalidRun is returned when a run cannot be executed as configured.
var ErrInvalidRun = errors.New("invalid run")

const publishConcurrency = 4

// NewReorderConfig builds the reorder pipeline configuration from the
// application settings.
func NewReorderConfig(cfg config.PipelineConfig, dataDir string) (reorder.Config, error) {
	rc := reorder.DefaultConfig(dataDir)

	policy, err := reorder.ParseSupplierPolicy(cfg.SupplierPolicy)
	if err != nil {
		return rc, err
	}
	rc.Resolver.Policy = policy
	if store := strings.TrimSpace(cfg.PrioritySupplierStore); store != "" {
		rc.Resolver.PriorityStore = store
	}

	if cfg.Workers > 0 {
		rc.WorkerCount = cfg.Workers
	}
	rc.Ingest.LocaleNumbers = cfg.LocaleNumbers
	rc.Normalize.StrictColumns = cfg.StrictColumns
	if len(cfg.ExemptStores) > 0 {
		rc.Normalize.ExemptStores = cfg.ExemptStores
	}

	if len(cfg.SpecialSKUs) > 0 {
		rc.SpecialSKUs = make(map[string]bool, len(cfg.SpecialSKUs))
		for _, sku := range cfg.SpecialSKUs {
			if sku = strings.TrimSpace(sku); sku != "" {
				rc.SpecialSKUs[sku] = true
			}
		}
	}
	return rc, nil
}

// RunService owns uploads and the run lifecycle: pending, running, then
// ready or failed.
type RunService struct {
	repo      repository.RunRepository
	cache     cache.ResultsCache
	publisher storage.LinkPublisher
	cfg       reorder.Config
	uploadDir string
}

func NewRunService(
	repo repository.RunRepository,
	resultsCache cache.ResultsCache,
	publisher storage.LinkPublisher,
	cfg reorder.Config,
	uploadDir string,
) *RunService {
	if resultsCache == nil {
		resultsCache = cache.NewNoopResultsCache()
	}
	if publisher == nil {
		publisher = storage.NoopPublisher{}
	}
	return &RunService{
		repo:      repo,
		cache:     resultsCache,
		publisher: publisher,
		cfg:       cfg,
		uploadDir: uploadDir,
	}
}

// SaveUpload stores src under the upload directory with a unique prefix and
// registers it.
func (s *RunService) SaveUpload(ctx context.Context, originalName string, src io.Reader) (*domain.FileUpload, error) {
	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "." || base == string(filepath.Separator) || base == "" {
		return nil, fmt.Errorf("%w: empty file name", ErrInvalidRun)
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	fileName := uuid.NewString() + "_" + base
	path := filepath.Join(s.uploadDir, fileName)

	out, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	size, err := io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to save %s: %w", base, err)
	}

	upload := &domain.FileUpload{
		FileName:     fileName,
		OriginalName: base,
		FilePath:     path,
		Size:         size,
	}
	if err := s.repo.CreateUpload(ctx, upload); err != nil {
		os.Remove(path)
		return nil, err
	}

	log.Info().Str("file", base).Int64("id", upload.ID).Int64("size", size).Msg("saved upload")
	return upload, nil
}

// CreateRun registers a pending run. Store names default to the name derived
// from each upload's original file name.
func (s *RunService) CreateRun(ctx context.Context, payload *domain.RunCreate) (*domain.Run, error) {
	for _, id := range []*int64{payload.SupplierUploadID, payload.StoreContributionUploadID, payload.ReferenceUploadID} {
		if id == nil {
			continue
		}
		if _, err := s.repo.GetUpload(ctx, *id); err != nil {
			return nil, err
		}
	}

	stores := make([]*domain.StoreUpload, 0, len(payload.StoreFiles))
	for _, sf := range payload.StoreFiles {
		upload, err := s.repo.GetUpload(ctx, sf.FileUploadID)
		if err != nil {
			return nil, err
		}

		name := strings.TrimSpace(sf.StoreName)
		if name == "" {
			source := upload.OriginalName
			if source == "" {
				source = upload.FileName
			}
			name = reorder.StoreNameFromFilename(source)
		}

		stores = append(stores, &domain.StoreUpload{
			FileUploadID:    upload.ID,
			StoreName:       name,
			FilePath:        upload.FilePath,
			ContributionPct: sf.ContributionPct,
		})
	}

	run := &domain.Run{
		Note:                      payload.Note,
		SupplierUploadID:          payload.SupplierUploadID,
		StoreContributionUploadID: payload.StoreContributionUploadID,
		ReferenceUploadID:         payload.ReferenceUploadID,
	}
	if err := s.repo.CreateRun(ctx, run, stores); err != nil {
		return nil, err
	}

	log.Info().Int64("run_id", run.ID).Int("stores", len(stores)).Msg("created run")
	return run, nil
}

func (s *RunService) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	return s.repo.ListRuns(ctx)
}

func (s *RunService) GetRun(ctx context.Context, id int64) (*domain.Run, error) {
	return s.repo.GetRun(ctx, id)
}

// GetResults returns the output records of a run, served from the cache when
// possible.
func (s *RunService) GetResults(ctx context.Context, runID int64) ([]*domain.POResult, error) {
	if cached, ok, err := s.cache.GetResults(ctx, runID); err != nil {
		log.Warn().Err(err).Int64("run_id", runID).Msg("results cache read failed")
	} else if ok {
		return cached, nil
	}

	run, err := s.repo.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	results, err := s.repo.GetResults(ctx, runID)
	if err != nil {
		return nil, err
	}

	if run.Status == domain.RunStatusReady {
		if err := s.cache.SetResults(ctx, runID, results); err != nil {
			log.Warn().Err(err).Int64("run_id", runID).Msg("results cache write failed")
		}
	}
	return results, nil
}

// ExecuteRun processes the store files of a run. A run that is already
// running is rejected with repository.ErrRunAlreadyRunning.
func (s *RunService) ExecuteRun(ctx context.Context, id int64) (*domain.Run, error) {
	if err := s.repo.ClaimRun(ctx, id); err != nil {
		return nil, err
	}

	start := time.Now()
	run, err := s.executeRun(ctx, id)
	if err != nil {
		note := fmt.Sprintf("Run failed: %v", err)
		if uerr := s.repo.UpdateRunStatus(context.WithoutCancel(ctx), id, domain.RunStatusFailed, note); uerr != nil {
			log.Error().Err(uerr).Int64("run_id", id).Msg("failed to mark run as failed")
		}
		log.Error().Err(err).Int64("run_id", id).Msg("run failed")
		return nil, err
	}

	log.Info().Int64("run_id", id).Dur("duration", time.Since(start)).Msg("run ready")
	return run, nil
}

func (s *RunService) executeRun(ctx context.Context, id int64) (*domain.Run, error) {
	run, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(run.StoreUploads) == 0 {
		return nil, fmt.Errorf("%w: run has no store uploads", ErrInvalidRun)
	}

	in, err := s.batchInput(ctx, run)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg
	cfg.DataDir = filepath.Join(s.cfg.DataDir, "runs", strconv.FormatInt(id, 10))

	observer := newStoreJobObserver(s.repo, run.StoreUploads)
	out, err := reorder.RunBatch(ctx, cfg, in, observer)
	if err != nil {
		return nil, err
	}

	results := s.publishResults(ctx, id, out.Files)
	if err := s.repo.ReplaceResults(ctx, id, results); err != nil {
		return nil, err
	}

	note := fmt.Sprintf("Processed %d stores", len(out.Files))
	if err := s.repo.UpdateRunStatus(ctx, id, domain.RunStatusReady, note); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		log.Warn().Err(err).Int64("run_id", id).Msg("results cache invalidation failed")
	}

	return s.repo.GetRun(ctx, id)
}

// batchInput resolves the reference uploads of a run. Supplier and
// contribution files are required.
func (s *RunService) batchInput(ctx context.Context, run *domain.Run) (reorder.BatchInput, error) {
	var in reorder.BatchInput
	if run.SupplierUploadID == nil || run.StoreContributionUploadID == nil {
		return in, fmt.Errorf("%w: run requires supplier and store contribution files", ErrInvalidRun)
	}

	supplier, err := s.repo.GetUpload(ctx, *run.SupplierUploadID)
	if err != nil {
		return in, err
	}
	contribution, err := s.repo.GetUpload(ctx, *run.StoreContributionUploadID)
	if err != nil {
		return in, err
	}
	in.SupplierPath = supplier.FilePath
	in.ContributionPath = contribution.FilePath

	if run.ReferenceUploadID != nil {
		ref, err := s.repo.GetUpload(ctx, *run.ReferenceUploadID)
		if err != nil {
			return in, err
		}
		in.ReferencePath = ref.FilePath
	}

	in.Stores = make(map[string]reorder.StoreOverride, len(run.StoreUploads))
	for _, su := range run.StoreUploads {
		in.Files = append(in.Files, su.FilePath)
		in.Stores[su.FilePath] = reorder.StoreOverride{
			Name:            su.StoreName,
			ContributionPct: su.ContributionPct,
		}
	}
	return in, nil
}

// publishResults builds one result per store and output variant. Publishing
// failures leave the result without a link.
func (s *RunService) publishResults(ctx context.Context, runID int64, files []*reorder.FileOutput) []*domain.POResult {
	var results []*domain.POResult
	for _, f := range files {
		for _, format := range reorder.Formats {
			path, ok := f.Outputs[format]
			if !ok {
				continue
			}
			results = append(results, &domain.POResult{
				RunID:           runID,
				StoreName:       f.Location,
				Variant:         domain.ResultVariant(format),
				LocalPath:       path,
				ContributionPct: f.ContributionPct,
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(publishConcurrency)
	for _, res := range results {
		g.Go(func() error {
			link, err := s.publisher.Publish(gctx, res.LocalPath)
			if err != nil {
				log.Warn().Err(err).Str("file", res.LocalPath).Msg("failed to publish output")
				return nil
			}
			if link != "" {
				res.DriveURL = &link
			}
			return nil
		})
	}
	g.Wait()

	return results
}

// ProcessFiles runs the pipeline over local files without a run record.
// Reserved file names among files supply the reference data.
func (s *RunService) ProcessFiles(ctx context.Context, files []string) (*domain.ProcessResult, error) {
	return s.Process(ctx, reorder.BatchInput{Files: files})
}

// Process runs the pipeline over a batch and summarises it.
func (s *RunService) Process(ctx context.Context, in reorder.BatchInput) (*domain.ProcessResult, error) {
	out, err := reorder.RunBatch(ctx, s.cfg, in, nil)
	if out == nil {
		return nil, err
	}

	result := &domain.ProcessResult{
		Status:     "success",
		ResultPath: out.ResultPath,
		Summary: domain.BatchTotals{
			TotalSKUs:          out.Summary.TotalSKUs,
			TotalEmergencyCost: out.Summary.TotalEmergencyPOCost,
			TotalRegularCost:   out.Summary.TotalRegularPOCost,
			ItemsToOrder:       out.Summary.ItemsToOrder,
		},
	}

	now := time.Now().UTC()
	for _, sum := range out.Summaries {
		result.Stores = append(result.Stores, &domain.StoreResult{
			StoreName:       sum.Location,
			SourceFile:      sum.FileName,
			ContributionPct: sum.ContributionPct,
			TotalItems:      sum.TotalRows,
			PrimaryMatches:  sum.PrimaryMatches,
			FallbackMatches: sum.FallbackMatches,
			NoSupplier:      sum.NoSupplier,
			Status:          sum.Status,
			Error:           sum.Error,
			Duration:        sum.ProcessingTime,
			ProcessedAt:     now,
		})
	}

	if err != nil {
		return result, err
	}
	if len(out.Errors) > 0 {
		result.Status = "partial"
		result.Message = fmt.Sprintf("%d of %d files failed", len(out.Errors), len(out.Summaries))
	} else {
		result.Message = fmt.Sprintf("Processed %d stores", len(out.Files))
	}
	return result, nil
}

// storeJobObserver mirrors file job transitions onto the store uploads of a
// run.
type storeJobObserver struct {
	repo repository.RunRepository

	mu     sync.Mutex
	byPath map[string]*domain.StoreUpload
}

func newStoreJobObserver(repo repository.RunRepository, stores []*domain.StoreUpload) *storeJobObserver {
	byPath := make(map[string]*domain.StoreUpload, len(stores))
	for _, su := range stores {
		byPath[su.FilePath] = su
	}
	return &storeJobObserver{repo: repo, byPath: byPath}
}

func (o *storeJobObserver) FileStatusChanged(ctx context.Context, file string, status pipeline.FileJobStatus, err error) {
	o.mu.Lock()
	su, ok := o.byPath[file]
	if !ok {
		o.mu.Unlock()
		return
	}
	su.Status = domain.FileJobStatus(status)
	su.ErrorMessage = nil
	if err != nil {
		msg := err.Error()
		su.ErrorMessage = &msg
	}
	if status == pipeline.FileStatusCompleted || status == pipeline.FileStatusFailed {
		now := time.Now().UTC()
		su.ProcessedAt = &now
	}
	update := *su
	o.mu.Unlock()

	if uerr := o.repo.UpdateStoreUpload(context.WithoutCancel(ctx), &update); uerr != nil {
		log.Warn().Err(uerr).Int64("store_upload_id", update.ID).Msg("failed to update store upload status")
	}
}
