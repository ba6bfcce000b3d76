package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestObjectKey(t *testing.T) {
	testCases := []struct {
		prefix string
		path   string
		want   string
	}{
		{"runs/7", filepath.Join("data", "output", "complete", "MEDAN.csv"), "runs/7/complete/MEDAN.csv"},
		{"/runs/7/", filepath.Join("out", "m2", "MEDAN_m2.csv"), "runs/7/m2/MEDAN_m2.csv"},
		{"", filepath.Join("emergency", "X_emergency.csv"), "emergency/X_emergency.csv"},
		{"", "result.csv", "result.csv"},
	}

	for _, tc := range testCases {
		if got := ObjectKey(tc.prefix, tc.path); got != tc.want {
			t.Errorf("ObjectKey(%q, %q): expected %q, got %q", tc.prefix, tc.path, tc.want, got)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	testCases := []struct {
		endpoint string
		useSSL   bool
		want     string
	}{
		{"s3.example.com", true, "https://s3.example.com"},
		{"//s3.example.com", false, "http://s3.example.com"},
		{"http://localhost:9000", true, "http://localhost:9000"},
	}
	for _, tc := range testCases {
		if got := normalizeEndpoint(tc.endpoint, tc.useSSL); got != tc.want {
			t.Errorf("normalizeEndpoint(%q): expected %q, got %q", tc.endpoint, tc.want, got)
		}
	}
}

func TestConstructorsRejectIncompleteConfig(t *testing.T) {
	if _, err := NewSevallaClient(SevallaConfig{Endpoint: "s3.example.com"}); err == nil {
		t.Error("Expected error for missing sevalla credentials")
	}
	if _, err := NewMinIOClient(MinIOConfig{Endpoint: "localhost:9000"}); err == nil {
		t.Error("Expected error for missing minio bucket")
	}
}

func TestNoopPublisher(t *testing.T) {
	link, err := NoopPublisher{}.Publish(context.Background(), "/tmp/x.csv")
	if err != nil || link != "" {
		t.Errorf("Expected empty link, got %q (%v)", link, err)
	}
}
