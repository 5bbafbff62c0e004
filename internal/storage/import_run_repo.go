package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ImportRunStore records import runs for auditing.
type ImportRunStore interface {
	Start(ctx context.Context, kind, target string) (int64, error)
	Finish(ctx context.Context, id int64, counts ImportCounts, runErr error) error
	ListRecent(ctx context.Context, limit int) ([]ImportRun, error)
}

// ImportRunRepo implements ImportRunStore on SQLite.
type ImportRunRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewImportRunRepo creates a new ImportRunRepo.
func NewImportRunRepo(db *sql.DB) *ImportRunRepo {
	return &ImportRunRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Start opens a run and returns its ID.
func (r *ImportRunRepo) Start(ctx context.Context, kind, target string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO import_runs (kind, target, started_at) VALUES (?, ?, ?)",
		kind, target, r.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert import run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get import run id: %w", err)
	}
	return id, nil
}

// Finish closes a run with its counts and the error that ended it, if any.
func (r *ImportRunRepo) Finish(ctx context.Context, id int64, counts ImportCounts, runErr error) error {
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE import_runs SET finished_at = ?, imported = ?, skipped = ?, failed = ?, error = ?
		 WHERE id = ?`,
		r.now(), counts.Imported, counts.Skipped, counts.Failed, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish import run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRecent returns the latest runs, newest first.
func (r *ImportRunRepo) ListRecent(ctx context.Context, limit int) ([]ImportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, target, started_at, finished_at, imported, skipped, failed, error
		 FROM import_runs ORDER BY started_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var runs []ImportRun
	for rows.Next() {
		var run ImportRun
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.Kind, &run.Target, &run.StartedAt, &finishedAt,
			&run.Imported, &run.Skipped, &run.Failed, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		if finishedAt.Valid {
			run.FinishedAt = finishedAt.Time
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import runs: %w", err)
	}
	return runs, nil
}
