package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/autopo-go/internal/domain"
	"github.com/andresuchdata/autopo-go/internal/repository"
	"github.com/andresuchdata/autopo-go/internal/repository/sqlite"
)

func newTestRepo(t *testing.T) repository.RunRepository {
	t.Helper()
	db, err := sqlite.NewDB(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := repository.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	// Applying the schema twice must be harmless.
	if err := repository.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Second migrate failed: %v", err)
	}
	return repository.NewRunRepository(db)
}

func createUpload(t *testing.T, repo repository.RunRepository, name string) *domain.FileUpload {
	t.Helper()
	upload := &domain.FileUpload{FileName: "abc_" + name, OriginalName: name, FilePath: "/uploads/abc_" + name, Size: 42}
	if err := repo.CreateUpload(context.Background(), upload); err != nil {
		t.Fatalf("CreateUpload failed: %v", err)
	}
	return upload
}

func TestRunRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	supplier := createUpload(t, repo, "supplier_data.csv")
	medan := createUpload(t, repo, "002 Miss Glam Medan.csv")

	got, err := repo.GetUpload(ctx, medan.ID)
	if err != nil {
		t.Fatalf("GetUpload failed: %v", err)
	}
	if got.OriginalName != medan.OriginalName || got.Size != 42 {
		t.Errorf("Expected upload %+v, got %+v", medan, got)
	}

	pct := 80.0
	run := &domain.Run{Note: "weekly", SupplierUploadID: &supplier.ID}
	stores := []*domain.StoreUpload{{FileUploadID: medan.ID, StoreName: "MEDAN", FilePath: medan.FilePath, ContributionPct: &pct}}
	if err := repo.CreateRun(ctx, run, stores); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == 0 || stores[0].ID == 0 {
		t.Fatalf("Expected ids assigned, got run %d store %d", run.ID, stores[0].ID)
	}

	loaded, err := repo.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if loaded.Status != domain.RunStatusPending {
		t.Errorf("Expected status pending, got %s", loaded.Status)
	}
	if loaded.SupplierUploadID == nil || *loaded.SupplierUploadID != supplier.ID {
		t.Errorf("Expected supplier upload %d, got %v", supplier.ID, loaded.SupplierUploadID)
	}
	if loaded.StoreContributionUploadID != nil {
		t.Errorf("Expected no contribution upload, got %v", *loaded.StoreContributionUploadID)
	}
	if len(loaded.StoreUploads) != 1 || loaded.StoreUploads[0].Status != domain.FileJobQueued {
		t.Fatalf("Expected one queued store upload, got %+v", loaded.StoreUploads)
	}
	if loaded.StoreUploads[0].ContributionPct == nil || *loaded.StoreUploads[0].ContributionPct != 80 {
		t.Errorf("Expected contribution override 80, got %v", loaded.StoreUploads[0].ContributionPct)
	}

	// Claiming
	if err := repo.ClaimRun(ctx, run.ID); err != nil {
		t.Fatalf("ClaimRun failed: %v", err)
	}
	if err := repo.ClaimRun(ctx, run.ID); !errors.Is(err, repository.ErrRunAlreadyRunning) {
		t.Errorf("Expected ErrRunAlreadyRunning, got %v", err)
	}
	if err := repo.ClaimRun(ctx, 999); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for missing run, got %v", err)
	}

	// File job updates
	now := time.Now().UTC()
	msg := "unreadable file"
	su := loaded.StoreUploads[0]
	su.Status = domain.FileJobFailed
	su.ErrorMessage = &msg
	su.ProcessedAt = &now
	if err := repo.UpdateStoreUpload(ctx, su); err != nil {
		t.Fatalf("UpdateStoreUpload failed: %v", err)
	}

	// Results are replaced, not appended
	url := "https://drive.example/view"
	for i := 0; i < 2; i++ {
		results := []*domain.POResult{
			{StoreName: "MEDAN", Variant: domain.VariantComplete, LocalPath: "/out/complete/MEDAN.csv", DriveURL: &url, ContributionPct: 80},
			{StoreName: "MEDAN", Variant: domain.VariantM2, LocalPath: "/out/m2/MEDAN_m2.csv", ContributionPct: 80},
		}
		if err := repo.ReplaceResults(ctx, run.ID, results); err != nil {
			t.Fatalf("ReplaceResults failed: %v", err)
		}
	}
	results, err := repo.GetResults(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].DriveURL == nil || *results[0].DriveURL != url || results[1].DriveURL != nil {
		t.Errorf("Expected link only on the first result, got %v / %v", results[0].DriveURL, results[1].DriveURL)
	}

	if err := repo.UpdateRunStatus(ctx, run.ID, domain.RunStatusReady, "Processed 1 stores"); err != nil {
		t.Fatalf("UpdateRunStatus failed: %v", err)
	}

	loaded, err = repo.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if loaded.Status != domain.RunStatusReady || loaded.Note != "Processed 1 stores" {
		t.Errorf("Expected ready run with note, got %s %q", loaded.Status, loaded.Note)
	}
	if s := loaded.StoreUploads[0]; s.Status != domain.FileJobFailed || s.ErrorMessage == nil || *s.ErrorMessage != msg || s.ProcessedAt == nil {
		t.Errorf("Expected failed store upload with message, got %+v", s)
	}
}

func TestRunRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.GetRun(ctx, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for run, got %v", err)
	}
	if _, err := repo.GetUpload(ctx, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for upload, got %v", err)
	}
	if err := repo.UpdateRunStatus(ctx, 1, domain.RunStatusFailed, ""); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on update, got %v", err)
	}

	runs, err := repo.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("Expected no runs, got %d", len(runs))
	}
}

func TestRunRepository_ListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for _, note := range []string{"first", "second"} {
		if err := repo.CreateRun(ctx, &domain.Run{Note: note}, nil); err != nil {
			t.Fatalf("CreateRun failed: %v", err)
		}
	}

	runs, err := repo.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].Note != "second" {
		t.Errorf("Expected newest run first, got %+v", runs)
	}
}
