// internal/domain/models.go
package domain

import "time"

// FileUpload represents a file saved under the upload directory
type FileUpload struct {
	ID           int64     `json:"id" db:"id"`
	FileName     string    `json:"file_name" db:"file_name"`
	OriginalName string    `json:"original_name" db:"original_name"`
	FilePath     string    `json:"file_path" db:"file_path"`
	Size         int64     `json:"size" db:"size"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Run represents one batch of store files processed together
type Run struct {
	ID                        int64     `json:"id" db:"id"`
	Note                      string    `json:"note" db:"note"`
	Status                    RunStatus `json:"status" db:"status"`
	SupplierUploadID          *int64    `json:"supplier_upload_id,omitempty" db:"supplier_upload_id"`
	StoreContributionUploadID *int64    `json:"store_contribution_upload_id,omitempty" db:"store_contribution_upload_id"`
	ReferenceUploadID         *int64    `json:"padang_reference_upload_id,omitempty" db:"reference_upload_id"`
	CreatedAt                 time.Time `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time `json:"updated_at" db:"updated_at"`

	StoreUploads []*StoreUpload `json:"store_uploads,omitempty" db:"-"`
}

// StoreUpload is a store file registered for a run, tracked as a file job
type StoreUpload struct {
	ID              int64         `json:"id" db:"id"`
	RunID           int64         `json:"run_id" db:"run_id"`
	FileUploadID    int64         `json:"file_upload_id" db:"file_upload_id"`
	StoreName       string        `json:"store_name" db:"store_name"`
	FilePath        string        `json:"file_path" db:"file_path"`
	ContributionPct *float64      `json:"contribution_pct,omitempty" db:"contribution_pct"`
	Status          FileJobStatus `json:"status" db:"status"`
	ErrorMessage    *string       `json:"error_message,omitempty" db:"error_message"`
	ProcessedAt     *time.Time    `json:"processed_at,omitempty" db:"processed_at"`
}

// POResult points at one output variant of one store in a run
type POResult struct {
	ID              int64         `json:"id" db:"id"`
	RunID           int64         `json:"run_id" db:"run_id"`
	StoreName       string        `json:"store_name" db:"store_name"`
	Variant         ResultVariant `json:"variant" db:"variant"`
	LocalPath       string        `json:"local_path" db:"local_path"`
	DriveURL        *string       `json:"drive_url,omitempty" db:"drive_url"`
	ContributionPct float64       `json:"contribution_pct" db:"contribution_pct"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// UploadedFile represents a file received from a client before it is registered
type UploadedFile struct {
	Filename string
	Path     string
	Size     int64
}

// StoreFileInput selects an upload as a store file of a new run
type StoreFileInput struct {
	FileUploadID    int64    `json:"file_upload_id" binding:"required"`
	StoreName       string   `json:"store_name,omitempty"`
	ContributionPct *float64 `json:"contribution_pct,omitempty"`
}

// RunCreate is the payload for creating a run
type RunCreate struct {
	Note                      string           `json:"note"`
	SupplierUploadID          *int64           `json:"supplier_upload_id"`
	StoreContributionUploadID *int64           `json:"store_contribution_upload_id"`
	ReferenceUploadID         *int64           `json:"padang_reference_upload_id"`
	StoreFiles                []StoreFileInput `json:"store_files"`
}

// StoreResult summarises one processed store file
type StoreResult struct {
	StoreName       string        `json:"store_name"`
	SourceFile      string        `json:"source_file"`
	ContributionPct float64       `json:"contribution_pct"`
	TotalItems      int           `json:"total_items"`
	PrimaryMatches  int           `json:"primary_supplier_matches"`
	FallbackMatches int           `json:"fallback_supplier_matches"`
	NoSupplier      int           `json:"no_supplier"`
	Status          string        `json:"status"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
	ProcessedAt     time.Time     `json:"processed_at"`
}

// ProcessResult is the response of a direct (run-less) processing request
type ProcessResult struct {
	Status     string         `json:"status"`
	Message    string         `json:"message,omitempty"`
	Stores     []*StoreResult `json:"stores"`
	Summary    BatchTotals    `json:"summary"`
	ResultPath string         `json:"result_path,omitempty"`
}

// BatchTotals aggregates the computed orders of a batch
type BatchTotals struct {
	TotalSKUs          int     `json:"total_skus"`
	TotalEmergencyCost float64 `json:"total_emergency_cost"`
	TotalRegularCost   float64 `json:"total_regular_cost"`
	ItemsToOrder       int     `json:"items_to_order"`
}
