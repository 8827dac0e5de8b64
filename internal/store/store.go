// Package store persists conversion results and run summaries to SQLite so
// runs can be compared and reviewed after the fact.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"graphshift/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversion_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	file_path TEXT NOT NULL,
	tier INTEGER NOT NULL,
	confidence TEXT NOT NULL,
	original_code TEXT NOT NULL,
	converted_code TEXT NOT NULL,
	required_imports TEXT NOT NULL DEFAULT '',
	required_package TEXT NOT NULL DEFAULT '',
	start_line INTEGER NOT NULL,
	end_line INTEGER NOT NULL,
	is_valid INTEGER NOT NULL,
	validation_errors TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_run ON conversion_results(run_id);
CREATE INDEX IF NOT EXISTS idx_results_file ON conversion_results(run_id, file_path);

CREATE TABLE IF NOT EXISTS run_summaries (
	run_id TEXT PRIMARY KEY,
	total_usages INTEGER NOT NULL,
	converted INTEGER NOT NULL,
	high_confidence INTEGER NOT NULL,
	medium_confidence INTEGER NOT NULL,
	low_confidence INTEGER NOT NULL,
	failed INTEGER NOT NULL,
	readiness_percent REAL NOT NULL,
	files_processed INTEGER NOT NULL,
	file_failures INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);
`

// DB wraps the SQLite handle behind the sink the project runner expects.
type DB struct {
	db *sql.DB
}

// Open creates (or reuses) the results database at path and initializes the
// schema. WAL keeps readers usable while a run is writing.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the underlying handle.
func (s *DB) Close() error {
	return s.db.Close()
}

// WriteBatch inserts every result of one file's batch in a single
// transaction.
func (s *DB) WriteBatch(ctx context.Context, runID string, batch *types.FileConversionBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, r := range batch.AllResults() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversion_results (
				run_id, file_path, tier, confidence, original_code, converted_code,
				required_imports, required_package, start_line, end_line,
				is_valid, validation_errors, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, r.FilePath, r.Tier, string(r.Confidence), r.OriginalCode, r.ConvertedCode,
			r.RequiredImports, r.RequiredPackage, r.StartLine, r.EndLine,
			boolToInt(r.IsValid), joinErrors(r.ValidationErrors), now)
		if err != nil {
			return fmt.Errorf("failed to insert result for %s: %w", r.FilePath, err)
		}
	}
	return tx.Commit()
}

// WriteSummary upserts the aggregate row for a run.
func (s *DB) WriteSummary(ctx context.Context, summary *types.ProjectConversionSummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_summaries (
			run_id, total_usages, converted, high_confidence, medium_confidence,
			low_confidence, failed, readiness_percent, files_processed,
			file_failures, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			total_usages = excluded.total_usages,
			converted = excluded.converted,
			high_confidence = excluded.high_confidence,
			medium_confidence = excluded.medium_confidence,
			low_confidence = excluded.low_confidence,
			failed = excluded.failed,
			readiness_percent = excluded.readiness_percent,
			files_processed = excluded.files_processed,
			file_failures = excluded.file_failures
	`, summary.RunID, summary.TotalUsages, summary.Converted, summary.HighConfidence,
		summary.MediumConfidence, summary.LowConfidence, summary.Failed,
		summary.ReadinessPercent, summary.FilesProcessed, len(summary.FileFailures), time.Now())
	if err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	return nil
}

// RunSummary is one persisted run, most recent first in ListRuns.
type RunSummary struct {
	RunID            string
	TotalUsages      int
	Converted        int
	ReadinessPercent float64
	FilesProcessed   int
	CreatedAt        time.Time
}

// ListRuns returns up to limit persisted runs, newest first.
func (s *DB) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, total_usages, converted, readiness_percent, files_processed, created_at
		FROM run_summaries ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.TotalUsages, &r.Converted, &r.ReadinessPercent, &r.FilesProcessed, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func joinErrors(errs []string) string {
	return strings.Join(errs, "\n")
}
