// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog keeps an optional SQLite history of generated scripts and
// the file records each one lists.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/esgf-wget/pkg/types"
)

// Run describes one generated script.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	ScriptPath string    `json:"script_path" yaml:"script_path"`
	Datasets   []string  `json:"datasets" yaml:"datasets"`
	Files      int       `json:"files" yaml:"files"`
	Dropped    int       `json:"dropped" yaml:"dropped"`
	TotalSize  uint64    `json:"total_size" yaml:"total_size"`
}

// Store manages the catalog database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog database at cfg.Path, creating parent
// directories and the schema as needed.
func Open(cfg types.CatalogConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("catalog path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			script_path TEXT NOT NULL,
			datasets TEXT NOT NULL,
			files INTEGER NOT NULL,
			dropped INTEGER NOT NULL,
			total_size INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS files (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			dataset_id TEXT NOT NULL,
			filename TEXT NOT NULL,
			url TEXT NOT NULL,
			checksum TEXT,
			checksum_type TEXT,
			size INTEGER,
			PRIMARY KEY (run_id, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_files_dataset_id ON files(dataset_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores a run and its file records in one transaction.
func (s *Store) Record(ctx context.Context, run Run, files []types.FileRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	datasetsJSON, err := json.Marshal(run.Datasets)
	if err != nil {
		return fmt.Errorf("encoding datasets of run %s: %w", run.ID, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, script_path, datasets, files, dropped, total_size)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano), run.ScriptPath,
		string(datasetsJSON), run.Files, run.Dropped, int64(run.TotalSize),
	)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO files (run_id, position, dataset_id, filename, url, checksum, checksum_type, size)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range files {
		_, err := stmt.ExecContext(ctx,
			run.ID, i, f.DatasetID, f.Filename, f.URL, f.Checksum, f.ChecksumType, f.Size,
		)
		if err != nil {
			return fmt.Errorf("inserting file %s: %w", f.Filename, err)
		}
	}

	return tx.Commit()
}

// Runs returns up to limit runs, newest first. A limit <= 0 returns all runs.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, created_at, script_path, datasets, files, dropped, total_size
		FROM runs ORDER BY created_at DESC, rowid DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r            Run
			createdAt    string
			datasetsJSON string
			totalSize    int64
		)
		if err := rows.Scan(&r.ID, &createdAt, &r.ScriptPath, &datasetsJSON, &r.Files, &r.Dropped, &totalSize); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		if err := json.Unmarshal([]byte(datasetsJSON), &r.Datasets); err != nil {
			return nil, fmt.Errorf("decoding datasets of run %s: %w", r.ID, err)
		}
		r.TotalSize = uint64(totalSize)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Files returns the file records of a run in script order.
func (s *Store) Files(ctx context.Context, runID string) ([]types.FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dataset_id, filename, url, checksum, checksum_type, size
		 FROM files WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying files: %w", err)
	}
	defer rows.Close()

	var files []types.FileRecord
	for rows.Next() {
		var f types.FileRecord
		if err := rows.Scan(&f.DatasetID, &f.Filename, &f.URL, &f.Checksum, &f.ChecksumType, &f.Size); err != nil {
			return nil, fmt.Errorf("scanning file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
