package jobstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/videochop/videochop/internal/jobs"
)

// SQLiteStore is a SQLite-backed implementation of jobs.Store, selected with
// STORE_BACKEND=sqlite. One row per record; Save replaces the whole table so
// the snapshot semantics match the file store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err = s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id           TEXT PRIMARY KEY,
			kind         TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL DEFAULT 'queued',
			message      TEXT NOT NULL DEFAULT '',
			error        TEXT NOT NULL DEFAULT '',
			download_url TEXT NOT NULL DEFAULT '',
			output_file  TEXT NOT NULL DEFAULT '',
			source_url   TEXT NOT NULL DEFAULT '',
			start_sec    REAL NOT NULL DEFAULT 0,
			end_sec      REAL NOT NULL DEFAULT 0,
			quality      TEXT NOT NULL DEFAULT '',
			created_at   DATETIME NOT NULL,
			updated_at   DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_jobs_status     ON jobs(status);
		CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
	`)
	return err
}

func (s *SQLiteStore) Load(ctx context.Context) (map[string]*jobs.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, status, message, error, download_url, output_file,
		       source_url, start_sec, end_sec, quality, created_at, updated_at
		FROM jobs
	`)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	records := make(map[string]*jobs.Record)
	for rows.Next() {
		rec := &jobs.Record{}
		if err := rows.Scan(
			&rec.ID, &rec.Kind, &rec.Status, &rec.Message, &rec.Error,
			&rec.DownloadURL, &rec.OutputFile,
			&rec.Request.SourceURL, &rec.Request.StartSec, &rec.Request.EndSec,
			&rec.Request.Quality, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records[rec.ID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Save(ctx context.Context, records map[string]*jobs.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM jobs`); err != nil {
		return fmt.Errorf("clear jobs: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO jobs
			(id, kind, status, message, error, download_url, output_file,
			 source_url, start_sec, end_sec, quality, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if rec == nil || rec.ID == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx,
			rec.ID, rec.Kind, rec.Status, rec.Message, rec.Error,
			rec.DownloadURL, rec.OutputFile,
			rec.Request.SourceURL, rec.Request.StartSec, rec.Request.EndSec,
			rec.Request.Quality, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("insert job %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
