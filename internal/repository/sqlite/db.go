package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/andresuchdata/autopo-go/internal/repository"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// NewDB opens the sqlite database at path, creating its directory when
// needed. sqlite serialises writers, so the pool keeps a single connection.
func NewDB(path string) (*repository.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path must be provided")
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	return repository.NewDB(db, 1), nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on&_busy_timeout=5000"
}
