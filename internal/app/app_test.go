package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/autopo-go/internal/config"
	"github.com/andresuchdata/autopo-go/internal/storage"
)

func TestOpenDB(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         config.DatabaseConfig
		expectError bool
	}{
		{
			name: "sqlite file",
			cfg:  config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "db", "autopo.db")},
		},
		{
			name: "default driver",
			cfg:  config.DatabaseConfig{Path: ":memory:"},
		},
		{
			name:        "unknown driver",
			cfg:         config.DatabaseConfig{Driver: "oracle"},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, err := OpenDB(context.Background(), &tc.cfg)
			if tc.expectError {
				if err == nil {
					t.Fatalf("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			defer db.Close()
			if db.Dialect() != "sqlite" {
				t.Errorf("Expected sqlite dialect, got %s", db.Dialect())
			}
		})
	}
}

func TestNewPublisher(t *testing.T) {
	testCases := []struct {
		name        string
		cfg         config.Config
		expectNoop  bool
		expectError bool
	}{
		{
			name:       "nothing configured",
			cfg:        config.Config{},
			expectNoop: true,
		},
		{
			name: "minio",
			cfg:  config.Config{MinIO: config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "outputs"}},
		},
		{
			name:        "minio without bucket",
			cfg:         config.Config{MinIO: config.MinIOConfig{Endpoint: "localhost:9000"}},
			expectError: true,
		},
		{
			name:        "sevalla without credentials",
			cfg:         config.Config{Sevalla: config.SevallaConfig{Endpoint: "s3.example.com", Bucket: "b"}},
			expectError: true,
		},
		{
			name:        "drive with bad credentials",
			cfg:         config.Config{Drive: config.DriveConfig{CredentialsJSON: "{", UploadFolderID: "f"}},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPublisher(context.Background(), &tc.cfg)
			if tc.expectError {
				if err == nil {
					t.Fatalf("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			_, isNoop := p.(storage.NoopPublisher)
			if isNoop != tc.expectNoop {
				t.Errorf("Expected noop %v, got %T", tc.expectNoop, p)
			}
		})
	}
}

func TestNewRunServiceRejectsUnknownPolicy(t *testing.T) {
	db, err := OpenDB(context.Background(), &config.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer db.Close()

	cfg := &config.Config{Pipeline: config.PipelineConfig{SupplierPolicy: "random"}}
	if _, err := NewRunService(context.Background(), cfg, db); err == nil {
		t.Errorf("Expected error for unknown supplier policy, got nil")
	}
}
