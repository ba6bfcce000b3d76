package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/andresuchdata/autopo-go/internal/config"
	"github.com/andresuchdata/autopo-go/internal/domain"
	"github.com/andresuchdata/autopo-go/internal/pipeline/reorder"
	"github.com/andresuchdata/autopo-go/internal/repository"
	"github.com/andresuchdata/autopo-go/internal/repository/sqlite"
	"github.com/andresuchdata/autopo-go/internal/storage"
)

const (
	medanCSV = "Brand,SKU,Nama,Toko,Stok,Daily Sales,Max. Daily Sales,Lead Time,Max. Lead Time,Min. Order,Sedang PO,HPP\n" +
		"X,1,Item One,MEDAN,10,1,2,5,10,5,0,10000\n"
	jambiCSV = "Brand,SKU,Nama,Toko,Stok,Daily Sales,Max. Daily Sales,Lead Time,Max. Lead Time,HPP\n" +
		"X,3,Item Three,JAMBI,0,1,1,5,10,1000\n"
	supplierCSV = "ID Supplier;Nama Supplier;Nama Brand;Nama Store;Min. Purchase\n" +
		"S1;Sup One;X;Miss Glam Medan;0\n"
	contributionCSV = "Medan,50\nJambi,80\n"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	failOn    string
}

func (p *fakePublisher) Publish(ctx context.Context, localPath string) (string, error) {
	if p.failOn != "" && strings.Contains(localPath, p.failOn) {
		return "", fmt.Errorf("upload rejected")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, localPath)
	return "https://links.example/" + filepath.Base(localPath), nil
}

func newTestService(t *testing.T, publisher *fakePublisher) (*RunService, repository.RunRepository) {
	t.Helper()
	db, err := sqlite.NewDB(sqlite.MemoryPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := repository.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	repo := repository.NewRunRepository(db)
	dir := t.TempDir()
	cfg := reorder.DefaultConfig(filepath.Join(dir, "data"))
	cfg.WorkerCount = 2

	var pub storage.LinkPublisher
	if publisher != nil {
		pub = publisher
	}
	return NewRunService(repo, nil, pub, cfg, filepath.Join(dir, "uploads")), repo
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func upload(t *testing.T, svc *RunService, name, content string) int64 {
	t.Helper()
	u, err := svc.SaveUpload(context.Background(), name, strings.NewReader(content))
	if err != nil {
		t.Fatalf("Failed to save %s: %v", name, err)
	}
	return u.ID
}

func TestRunService_ExecuteRun(t *testing.T) {
	publisher := &fakePublisher{failOn: "_emergency"}
	svc, _ := newTestService(t, publisher)
	ctx := context.Background()

	supplierID := upload(t, svc, "supplier_data.csv", supplierCSV)
	contribID := upload(t, svc, "store_contribution.csv", contributionCSV)
	medanID := upload(t, svc, "002 Miss Glam Medan.csv", medanCSV)
	jambiID := upload(t, svc, "003 Miss Glam Jambi.csv", jambiCSV)
	pct := 100.0

	run, err := svc.CreateRun(ctx, &domain.RunCreate{
		Note:                      "weekly",
		SupplierUploadID:          &supplierID,
		StoreContributionUploadID: &contribID,
		StoreFiles: []domain.StoreFileInput{
			{FileUploadID: medanID},
			{FileUploadID: jambiID, StoreName: "Jambi", ContributionPct: &pct},
		},
	})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.Status != domain.RunStatusPending {
		t.Errorf("Expected pending run, got %s", run.Status)
	}
	if run.StoreUploads[0].StoreName != "MEDAN" {
		t.Errorf("Expected store name derived from file name, got %s", run.StoreUploads[0].StoreName)
	}

	done, err := svc.ExecuteRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("ExecuteRun failed: %v", err)
	}
	if done.Status != domain.RunStatusReady {
		t.Errorf("Expected ready run, got %s", done.Status)
	}
	if done.Note != "Processed 2 stores" {
		t.Errorf("Expected note 'Processed 2 stores', got %q", done.Note)
	}
	for _, su := range done.StoreUploads {
		if su.Status != domain.FileJobCompleted {
			t.Errorf("Expected store upload %s completed, got %s", su.StoreName, su.Status)
		}
		if su.ProcessedAt == nil {
			t.Errorf("Expected processed_at set for %s", su.StoreName)
		}
	}

	results, err := svc.GetResults(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetResults failed: %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("Expected 6 results, got %d", len(results))
	}

	pcts := map[string]float64{}
	for _, r := range results {
		pcts[r.StoreName] = r.ContributionPct
		if r.Variant == domain.VariantEmergency {
			if r.DriveURL != nil {
				t.Errorf("Expected no link for failed publish of %s, got %s", r.LocalPath, *r.DriveURL)
			}
			continue
		}
		if r.DriveURL == nil || !strings.HasPrefix(*r.DriveURL, "https://links.example/") {
			t.Errorf("Expected link for %s", r.LocalPath)
		}
		if !strings.Contains(r.LocalPath, filepath.Join("runs", fmt.Sprint(run.ID))) {
			t.Errorf("Expected output under the run directory, got %s", r.LocalPath)
		}
	}
	if pcts["MEDAN"] != 50 || pcts["JAMBI"] != 100 {
		t.Errorf("Expected MEDAN 50 and JAMBI 100 (override), got %v", pcts)
	}
}

func TestRunService_ExecuteRunFailures(t *testing.T) {
	testCases := []struct {
		name        string
		setup       func(t *testing.T, svc *RunService, repo repository.RunRepository) int64
		expectedErr error
		markedAs    domain.RunStatus
	}{
		{
			name: "missing reference files",
			setup: func(t *testing.T, svc *RunService, repo repository.RunRepository) int64 {
				id := upload(t, svc, "002 Miss Glam Medan.csv", medanCSV)
				run, err := svc.CreateRun(context.Background(), &domain.RunCreate{
					StoreFiles: []domain.StoreFileInput{{FileUploadID: id}},
				})
				if err != nil {
					t.Fatalf("CreateRun failed: %v", err)
				}
				return run.ID
			},
			expectedErr: ErrInvalidRun,
			markedAs:    domain.RunStatusFailed,
		},
		{
			name: "no store files",
			setup: func(t *testing.T, svc *RunService, repo repository.RunRepository) int64 {
				run, err := svc.CreateRun(context.Background(), &domain.RunCreate{})
				if err != nil {
					t.Fatalf("CreateRun failed: %v", err)
				}
				return run.ID
			},
			expectedErr: ErrInvalidRun,
			markedAs:    domain.RunStatusFailed,
		},
		{
			name: "already running",
			setup: func(t *testing.T, svc *RunService, repo repository.RunRepository) int64 {
				run, err := svc.CreateRun(context.Background(), &domain.RunCreate{})
				if err != nil {
					t.Fatalf("CreateRun failed: %v", err)
				}
				if err := repo.ClaimRun(context.Background(), run.ID); err != nil {
					t.Fatalf("ClaimRun failed: %v", err)
				}
				return run.ID
			},
			expectedErr: repository.ErrRunAlreadyRunning,
			markedAs:    domain.RunStatusRunning,
		},
		{
			name: "unknown run",
			setup: func(t *testing.T, svc *RunService, repo repository.RunRepository) int64 {
				return 999
			},
			expectedErr: repository.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newTestService(t, nil)
			id := tc.setup(t, svc, repo)

			_, err := svc.ExecuteRun(context.Background(), id)
			if !errors.Is(err, tc.expectedErr) {
				t.Fatalf("Expected %v, got %v", tc.expectedErr, err)
			}
			if tc.markedAs == "" {
				return
			}

			run, err := svc.GetRun(context.Background(), id)
			if err != nil {
				t.Fatalf("GetRun failed: %v", err)
			}
			if run.Status != tc.markedAs {
				t.Errorf("Expected status %s, got %s", tc.markedAs, run.Status)
			}
			if tc.markedAs == domain.RunStatusFailed && !strings.HasPrefix(run.Note, "Run failed: ") {
				t.Errorf("Expected failure note, got %q", run.Note)
			}
		})
	}
}

func TestRunService_CreateRunUnknownUpload(t *testing.T) {
	svc, _ := newTestService(t, nil)
	missing := int64(42)

	_, err := svc.CreateRun(context.Background(), &domain.RunCreate{SupplierUploadID: &missing})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for supplier upload, got %v", err)
	}

	_, err = svc.CreateRun(context.Background(), &domain.RunCreate{
		StoreFiles: []domain.StoreFileInput{{FileUploadID: missing}},
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for store upload, got %v", err)
	}
}

func TestRunService_SaveUpload(t *testing.T) {
	svc, repo := newTestService(t, nil)

	u, err := svc.SaveUpload(context.Background(), "../../etc/001 Miss Glam Padang.csv", strings.NewReader("abc"))
	if err != nil {
		t.Fatalf("SaveUpload failed: %v", err)
	}
	if u.OriginalName != "001 Miss Glam Padang.csv" {
		t.Errorf("Expected base name kept, got %s", u.OriginalName)
	}
	if filepath.Dir(u.FilePath) != svc.uploadDir {
		t.Errorf("Expected file inside %s, got %s", svc.uploadDir, u.FilePath)
	}
	if !strings.HasSuffix(u.FileName, "_001 Miss Glam Padang.csv") || u.Size != 3 {
		t.Errorf("Expected prefixed name and size 3, got %s (%d)", u.FileName, u.Size)
	}

	stored, err := repo.GetUpload(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetUpload failed: %v", err)
	}
	if stored.FilePath != u.FilePath {
		t.Errorf("Expected stored path %s, got %s", u.FilePath, stored.FilePath)
	}

	if _, err := svc.SaveUpload(context.Background(), "  ", strings.NewReader("")); err == nil {
		t.Errorf("Expected error for empty name, got nil")
	}
}

func TestRunService_ProcessFiles(t *testing.T) {
	svc, _ := newTestService(t, nil)
	dir := t.TempDir()

	var files []string
	for name, content := range map[string]string{
		"002 Miss Glam Medan.csv": medanCSV,
		"003 Miss Glam Jambi.csv": "",
		"supplier_data.csv":       supplierCSV,
		"store_contribution.csv":  contributionCSV,
	} {
		files = append(files, writeFile(t, dir, name, content))
	}

	result, err := svc.ProcessFiles(context.Background(), files)
	if err != nil {
		t.Fatalf("ProcessFiles failed: %v", err)
	}
	if result.Status != "partial" {
		t.Errorf("Expected partial status, got %s", result.Status)
	}
	if len(result.Stores) != 2 {
		t.Fatalf("Expected 2 store results, got %d", len(result.Stores))
	}
	if result.Summary.TotalSKUs != 1 {
		t.Errorf("Expected 1 SKU, got %d", result.Summary.TotalSKUs)
	}
	if result.Summary.TotalRegularCost != 200000 {
		t.Errorf("Expected regular cost 200000, got %v", result.Summary.TotalRegularCost)
	}
	if result.ResultPath == "" {
		t.Errorf("Expected a combined result path")
	}
}

func TestNewReorderConfig(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         config.PipelineConfig
		check       func(t *testing.T, rc reorder.Config)
		expectError bool
	}{
		{
			name: "defaults",
			cfg:  config.PipelineConfig{},
			check: func(t *testing.T, rc reorder.Config) {
				if rc.Resolver.Policy != reorder.PolicyBrandStore {
					t.Errorf("Expected brand_store policy, got %s", rc.Resolver.Policy)
				}
				if rc.Resolver.PriorityStore != reorder.DefaultPriorityStore {
					t.Errorf("Expected default priority store, got %s", rc.Resolver.PriorityStore)
				}
				if rc.Normalize.ExemptStores != nil {
					t.Errorf("Expected default exempt stores, got %v", rc.Normalize.ExemptStores)
				}
				if rc.SpecialSKUs != nil {
					t.Errorf("Expected no special SKUs, got %v", rc.SpecialSKUs)
				}
			},
		},
		{
			name: "overrides",
			cfg: config.PipelineConfig{
				Workers:               3,
				SupplierPolicy:        "BRAND_ONLY",
				PrioritySupplierStore: "Miss Glam Medan",
				ExemptStores:          []string{"MEDAN"},
				SpecialSKUs:           []string{" 123 ", ""},
			},
			check: func(t *testing.T, rc reorder.Config) {
				if rc.WorkerCount != 3 {
					t.Errorf("Expected 3 workers, got %d", rc.WorkerCount)
				}
				if rc.Resolver.Policy != reorder.PolicyBrandOnly {
					t.Errorf("Expected brand_only policy, got %s", rc.Resolver.Policy)
				}
				if rc.Resolver.PriorityStore != "Miss Glam Medan" {
					t.Errorf("Expected priority store override, got %s", rc.Resolver.PriorityStore)
				}
				if len(rc.Normalize.ExemptStores) != 1 {
					t.Errorf("Expected 1 exempt store, got %v", rc.Normalize.ExemptStores)
				}
				if len(rc.SpecialSKUs) != 1 || !rc.SpecialSKUs["123"] {
					t.Errorf("Expected special SKU 123, got %v", rc.SpecialSKUs)
				}
			},
		},
		{
			name:        "unknown policy",
			cfg:         config.PipelineConfig{SupplierPolicy: "cheapest"},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rc, err := NewReorderConfig(tc.cfg, "out")
			if tc.expectError {
				if err == nil {
					t.Fatalf("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			tc.check(t, rc)
		})
	}
}
