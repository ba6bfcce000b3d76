package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// schema uses {{ID}} for the auto-increment primary key, which differs
// between the supported dialects.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS file_uploads (
		id {{ID}},
		file_name TEXT NOT NULL,
		original_name TEXT NOT NULL DEFAULT '',
		file_path TEXT NOT NULL,
		size BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS runs (
		id {{ID}},
		note TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		supplier_upload_id BIGINT REFERENCES file_uploads(id),
		store_contribution_upload_id BIGINT REFERENCES file_uploads(id),
		reference_upload_id BIGINT REFERENCES file_uploads(id),
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS store_uploads (
		id {{ID}},
		run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		file_upload_id BIGINT NOT NULL REFERENCES file_uploads(id),
		store_name TEXT NOT NULL,
		file_path TEXT NOT NULL,
		contribution_pct DOUBLE PRECISION,
		status TEXT NOT NULL DEFAULT 'queued',
		error_message TEXT,
		processed_at TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_store_uploads_run_id ON store_uploads(run_id)`,
	`CREATE TABLE IF NOT EXISTS po_results (
		id {{ID}},
		run_id BIGINT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		store_name TEXT NOT NULL,
		variant TEXT NOT NULL,
		local_path TEXT NOT NULL,
		drive_url TEXT,
		contribution_pct DOUBLE PRECISION NOT NULL DEFAULT 100,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_po_results_run_id ON po_results(run_id)`,
}

// Migrate creates the run store tables when they do not exist.
func Migrate(ctx context.Context, db *DB) error {
	id := "BIGSERIAL PRIMARY KEY"
	if db.Dialect() == "sqlite" {
		id = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, strings.ReplaceAll(stmt, "{{ID}}", id)); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	log.Debug().Str("dialect", db.Dialect()).Int("statements", len(schema)).Msg("run store schema applied")
	return nil
}
