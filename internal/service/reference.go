package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-go/internal/domain"
	"github.com/andresuchdata/autopo-go/internal/ingest"
	"github.com/andresuchdata/autopo-go/internal/pipeline/reorder"
)

// NamedFile is an uploaded file that has not been saved yet.
type NamedFile struct {
	Name string
	Body io.Reader
}

// ProcessRequest is a direct processing request: store files plus optional
// reference files. Missing reference files fall back to the last ones saved.
type ProcessRequest struct {
	Stores       []NamedFile
	Supplier     *NamedFile
	Contribution *NamedFile
}

// ProcessUploads saves the files of req and processes them as one batch.
// Reserved names among the store files are used as the missing reference
// files; an explicit Supplier or Contribution takes precedence.
func (s *RunService) ProcessUploads(ctx context.Context, req ProcessRequest) (*domain.ProcessResult, error) {
	stores := make([]NamedFile, 0, len(req.Stores))
	for i := range req.Stores {
		f := &req.Stores[i]
		switch reorder.ReservedKind(f.Name) {
		case reorder.SupplierFileName:
			if req.Supplier == nil {
				req.Supplier = f
				continue
			}
		case reorder.ContributionFileName:
			if req.Contribution == nil {
				req.Contribution = f
				continue
			}
		default:
			stores = append(stores, *f)
			continue
		}
		log.Warn().Str("file", f.Name).Msg("reference file given twice, ignoring the copy among store files")
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("%w: no store files provided", ErrInvalidRun)
	}

	in := reorder.BatchInput{Stores: make(map[string]reorder.StoreOverride, len(stores))}
	for _, f := range stores {
		upload, err := s.SaveUpload(ctx, f.Name, f.Body)
		if err != nil {
			return nil, err
		}
		in.Files = append(in.Files, upload.FilePath)
		in.Stores[upload.FilePath] = reorder.StoreOverride{Name: reorder.StoreNameFromFilename(upload.OriginalName)}
	}

	var err error
	if in.SupplierPath, err = s.referencePath(reorder.SupplierFileName, req.Supplier); err != nil {
		return nil, err
	}
	if in.ContributionPath, err = s.referencePath(reorder.ContributionFileName, req.Contribution); err != nil {
		return nil, err
	}

	return s.Process(ctx, in)
}

// referencePath saves f under its reserved name, or returns the previously
// saved file when f is nil. An empty path means no reference data.
func (s *RunService) referencePath(name string, f *NamedFile) (string, error) {
	path := filepath.Join(s.uploadDir, name)
	if f == nil {
		if _, err := os.Stat(path); err != nil {
			return "", nil
		}
		return path, nil
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	// The previous copy stays in place until the new one is complete.
	out, err := os.CreateTemp(s.uploadDir, name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	_, err = io.Copy(out, f.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(out.Name(), path)
	}
	if err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("failed to save %s: %w", name, err)
	}
	return path, nil
}

// LatestResults returns the rows of the last combined result file as maps
// keyed by column name. No result yet yields an empty slice.
func (s *RunService) LatestResults() ([]map[string]string, error) {
	path := filepath.Join(s.cfg.DataDir, reorder.ResultFileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return []map[string]string{}, nil
	}

	cfg := s.cfg.Ingest
	cfg.Formats = ingest.SemicolonFirstFormats()
	cfg.LocaleNumbers = false

	table, err := ingest.NewReader(cfg).Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	records := make([]map[string]string, 0, table.Len())
	for _, row := range table.Rows {
		record := make(map[string]string, len(table.Header))
		for i, h := range table.Header {
			if i < len(row) {
				record[h] = row[i]
			} else {
				record[h] = ""
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// Suppliers returns the last saved supplier catalog.
func (s *RunService) Suppliers() []reorder.SupplierRecord {
	return reorder.LoadSupplierCatalog(filepath.Join(s.uploadDir, reorder.SupplierFileName))
}

// Contributions returns the last saved store contribution table.
func (s *RunService) Contributions() reorder.ContributionTable {
	return reorder.LoadContributions(filepath.Join(s.uploadDir, reorder.ContributionFileName))
}
