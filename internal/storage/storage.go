package storage

import (
	"context"
	"path"
	"path/filepath"
	"strings"
)

// ObjectInfo represents metadata for a remote file/object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ObjectStorage captures the minimal S3-compatible operations the pipeline needs.
type ObjectStorage interface {
	ListObjects(ctx context.Context, prefix string) ([]ObjectInfo, error)
	DownloadObject(ctx context.Context, key string, destPath string) error
	UploadObject(ctx context.Context, key string, data []byte) error
}

// LinkPublisher uploads a local output file and returns a shareable link.
type LinkPublisher interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// NoopPublisher publishes nothing and returns no link.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, localPath string) (string, error) {
	return "", nil
}

// ObjectKey builds the remote key of an output file: prefix, the name of its
// parent directory (the output variant) and its base name.
func ObjectKey(prefix, localPath string) string {
	parent := filepath.Base(filepath.Dir(localPath))
	parts := []string{strings.Trim(strings.TrimSpace(prefix), "/")}
	if parent != "." && parent != string(filepath.Separator) {
		parts = append(parts, parent)
	}
	parts = append(parts, filepath.Base(localPath))
	return strings.TrimPrefix(path.Join(parts...), "/")
}
