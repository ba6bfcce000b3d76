package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/autopo-go/internal/storage"
)

// objectDownloader copies store files from object storage into a local
// directory, keeping their key layout below the prefix.
type objectDownloader struct {
	client  storage.ObjectStorage
	destDir string
}

func newSevallaDownloader(c *cli.Context) (*objectDownloader, error) {
	client, err := storage.NewSevallaClient(storage.SevallaConfig{
		Endpoint:  c.String("sevalla-endpoint"),
		AccessKey: c.String("sevalla-access-key"),
		SecretKey: c.String("sevalla-secret-key"),
		Bucket:    c.String("sevalla-bucket"),
		Region:    c.String("sevalla-region"),
		UseSSL:    c.Bool("sevalla-use-ssl"),
	})
	if err != nil {
		return nil, err
	}
	return &objectDownloader{client: client, destDir: c.String("sevalla-download-dir")}, nil
}

// download fetches the object key (relative to prefix) or, when key is empty,
// every CSV and XLSX object under prefix. Local paths are returned sorted.
func (d *objectDownloader) download(ctx context.Context, prefix, key string) ([]string, error) {
	if d.destDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}

	keys := []string{resolveObjectKey(prefix, key)}
	if key == "" {
		objects, err := d.client.ListObjects(ctx, strings.TrimSpace(prefix))
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", prefix, err)
		}
		keys = keys[:0]
		for _, obj := range objects {
			if isStoreObject(obj.Key) {
				keys = append(keys, obj.Key)
			}
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no CSV or XLSX files found under %q", prefix)
	}

	paths := make([]string, 0, len(keys))
	for _, k := range keys {
		local := filepath.Join(d.destDir, filepath.FromSlash(objectRelativePath(prefix, k)))
		if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
			return nil, fmt.Errorf("failed to prepare directory for %s: %w", local, err)
		}
		if err := d.client.DownloadObject(ctx, k, local); err != nil {
			return nil, err
		}
		paths = append(paths, local)
	}
	sort.Strings(paths)
	return paths, nil
}

func isStoreObject(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// resolveObjectKey joins key onto prefix unless key already carries it.
func resolveObjectKey(prefix, key string) string {
	prefix = strings.TrimSpace(prefix)
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return prefix
	}
	if prefix == "" {
		return key
	}
	base := strings.TrimSuffix(prefix, "/")
	if strings.HasPrefix(key, base) {
		return key
	}
	return base + "/" + key
}

// objectRelativePath is key without prefix, or its base name when nothing
// is left.
func objectRelativePath(prefix, key string) string {
	if prefix == "" {
		return key
	}
	rel := strings.TrimPrefix(key, strings.TrimSuffix(strings.TrimSpace(prefix), "/")+"/")
	if rel == "" {
		return path.Base(key)
	}
	return rel
}
