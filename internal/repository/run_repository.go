package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/autopo-go/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRunAlreadyRunning is returned when a run is claimed twice.
	ErrRunAlreadyRunning = errors.New("run already in progress")
)

// RunRepository persists uploads, runs, their store file jobs and results.
type RunRepository interface {
	CreateUpload(ctx context.Context, upload *domain.FileUpload) error
	GetUpload(ctx context.Context, id int64) (*domain.FileUpload, error)

	CreateRun(ctx context.Context, run *domain.Run, stores []*domain.StoreUpload) error
	GetRun(ctx context.Context, id int64) (*domain.Run, error)
	ListRuns(ctx context.Context) ([]*domain.Run, error)
	// ClaimRun moves a run to running unless it already is.
	ClaimRun(ctx context.Context, id int64) error
	UpdateRunStatus(ctx context.Context, id int64, status domain.RunStatus, note string) error

	UpdateStoreUpload(ctx context.Context, su *domain.StoreUpload) error

	// ReplaceResults swaps the results of a run in one transaction.
	ReplaceResults(ctx context.Context, runID int64, results []*domain.POResult) error
	GetResults(ctx context.Context, runID int64) ([]*domain.POResult, error)
}

type runRepository struct {
	db *DB
}

// NewRunRepository creates a run repository on any supported dialect.
func NewRunRepository(db *DB) RunRepository {
	return &runRepository{db: db}
}

const (
	uploadColumns      = `id, file_name, original_name, file_path, size, created_at`
	runColumns         = `id, note, status, supplier_upload_id, store_contribution_upload_id, reference_upload_id, created_at, updated_at`
	storeUploadColumns = `id, run_id, file_upload_id, store_name, file_path, contribution_pct, status, error_message, processed_at`
	resultColumns      = `id, run_id, store_name, variant, local_path, drive_url, contribution_pct, created_at`
)

func (r *runRepository) CreateUpload(ctx context.Context, upload *domain.FileUpload) error {
	if upload.CreatedAt.IsZero() {
		upload.CreatedAt = time.Now().UTC()
	}

	query := r.db.Rebind(`
		INSERT INTO file_uploads (file_name, original_name, file_path, size, created_at)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := r.db.QueryRowxContext(ctx, query,
		upload.FileName, upload.OriginalName, upload.FilePath, upload.Size, upload.CreatedAt,
	).Scan(&upload.ID)
	if err != nil {
		return fmt.Errorf("failed to insert file upload: %w", err)
	}
	return nil
}

func (r *runRepository) GetUpload(ctx context.Context, id int64) (*domain.FileUpload, error) {
	var upload domain.FileUpload
	query := r.db.Rebind(`SELECT ` + uploadColumns + ` FROM file_uploads WHERE id = ?`)
	if err := r.db.GetContext(ctx, &upload, query, id); err != nil {
		return nil, notFound(err, "file upload %d", id)
	}
	return &upload, nil
}

func (r *runRepository) CreateRun(ctx context.Context, run *domain.Run, stores []*domain.StoreUpload) error {
	now := time.Now().UTC()
	run.CreatedAt = now
	run.UpdatedAt = now
	if run.Status == "" {
		run.Status = domain.RunStatusPending
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO runs (note, status, supplier_upload_id, store_contribution_upload_id, reference_upload_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		err := tx.QueryRowxContext(ctx, query,
			run.Note, run.Status, run.SupplierUploadID, run.StoreContributionUploadID,
			run.ReferenceUploadID, run.CreatedAt, run.UpdatedAt,
		).Scan(&run.ID)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		storeQuery := tx.Rebind(`
			INSERT INTO store_uploads (run_id, file_upload_id, store_name, file_path, contribution_pct, status)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		for _, su := range stores {
			su.RunID = run.ID
			if su.Status == "" {
				su.Status = domain.FileJobQueued
			}
			err := tx.QueryRowxContext(ctx, storeQuery,
				su.RunID, su.FileUploadID, su.StoreName, su.FilePath, su.ContributionPct, su.Status,
			).Scan(&su.ID)
			if err != nil {
				return fmt.Errorf("failed to insert store upload %s: %w", su.StoreName, err)
			}
		}

		run.StoreUploads = stores
		return nil
	})
}

func (r *runRepository) GetRun(ctx context.Context, id int64) (*domain.Run, error) {
	var run domain.Run
	query := r.db.Rebind(`SELECT ` + runColumns + ` FROM runs WHERE id = ?`)
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, notFound(err, "run %d", id)
	}

	storeQuery := r.db.Rebind(`SELECT ` + storeUploadColumns + ` FROM store_uploads WHERE run_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &run.StoreUploads, storeQuery, id); err != nil {
		return nil, fmt.Errorf("failed to load store uploads of run %d: %w", id, err)
	}
	return &run, nil
}

func (r *runRepository) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	runs := []*domain.Run{}
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &runs, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

func (r *runRepository) ClaimRun(ctx context.Context, id int64) error {
	query := r.db.Rebind(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ? AND status <> ?`)
	res, err := r.db.ExecContext(ctx, query, domain.RunStatusRunning, time.Now().UTC(), id, domain.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to claim run %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to claim run %d: %w", id, err)
	}
	if n == 1 {
		return nil
	}

	// Either missing or already running.
	if _, err := r.GetRun(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("run %d: %w", id, ErrRunAlreadyRunning)
}

func (r *runRepository) UpdateRunStatus(ctx context.Context, id int64, status domain.RunStatus, note string) error {
	query := r.db.Rebind(`UPDATE runs SET status = ?, note = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, status, note, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *runRepository) UpdateStoreUpload(ctx context.Context, su *domain.StoreUpload) error {
	query := r.db.Rebind(`
		UPDATE store_uploads
		SET status = ?, error_message = ?, processed_at = ?
		WHERE id = ?
	`)
	if _, err := r.db.ExecContext(ctx, query, su.Status, su.ErrorMessage, su.ProcessedAt, su.ID); err != nil {
		return fmt.Errorf("failed to update store upload %d: %w", su.ID, err)
	}
	return nil
}

func (r *runRepository) ReplaceResults(ctx context.Context, runID int64, results []*domain.POResult) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM po_results WHERE run_id = ?`), runID); err != nil {
			return fmt.Errorf("failed to clear results of run %d: %w", runID, err)
		}

		query := tx.Rebind(`
			INSERT INTO po_results (run_id, store_name, variant, local_path, drive_url, contribution_pct, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`)
		now := time.Now().UTC()
		for _, res := range results {
			res.RunID = runID
			res.CreatedAt = now
			err := tx.QueryRowxContext(ctx, query,
				res.RunID, res.StoreName, res.Variant, res.LocalPath, res.DriveURL, res.ContributionPct, res.CreatedAt,
			).Scan(&res.ID)
			if err != nil {
				return fmt.Errorf("failed to insert result %s/%s: %w", res.StoreName, res.Variant, err)
			}
		}
		return nil
	})
}

func (r *runRepository) GetResults(ctx context.Context, runID int64) ([]*domain.POResult, error) {
	results := []*domain.POResult{}
	query := r.db.Rebind(`SELECT ` + resultColumns + ` FROM po_results WHERE run_id = ? ORDER BY id`)
	if err := r.db.SelectContext(ctx, &results, query, runID); err != nil {
		return nil, fmt.Errorf("failed to load results of run %d: %w", runID, err)
	}
	return results, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf("failed to load "+format+": %w", append(args, err)...)
}
