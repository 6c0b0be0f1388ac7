// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mdhender/tfcreviews/model"
)

// runTimeFormat is fixed width so that started_at sorts as text.
const runTimeFormat = "2006-01-02T15:04:05.000000000Z"

// InsertImportRun appends a run to the import history.
func (s *SQLiteStore) InsertImportRun(ctx context.Context, run *model.ImportRun) error {
	const query = `
		INSERT INTO import_runs (id, type, started_at, finished_at, clients, failures, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Type,
		run.StartedAt.UTC().Format(runTimeFormat),
		run.FinishedAt.UTC().Format(runTimeFormat),
		run.Clients,
		run.Failures,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("insert import_run: %w", err)
	}
	return nil
}

// ListImportRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *SQLiteStore) ListImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error) {
	const query = `
		SELECT id, type, started_at, finished_at, clients, failures, error
		FROM import_runs
		ORDER BY started_at DESC
		LIMIT ?
	`
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query import_runs: %w", err)
	}
	defer rows.Close()

	var runs []model.ImportRun
	for rows.Next() {
		var run model.ImportRun
		var startedAt, finishedAt string
		var runErr sql.NullString
		if err := rows.Scan(
			&run.ID,
			&run.Type,
			&startedAt,
			&finishedAt,
			&run.Clients,
			&run.Failures,
			&runErr,
		); err != nil {
			return nil, fmt.Errorf("scan import_run: %w", err)
		}
		if t, err := time.Parse(runTimeFormat, startedAt); err == nil {
			run.StartedAt = t
		}
		if t, err := time.Parse(runTimeFormat, finishedAt); err == nil {
			run.FinishedAt = t
		}
		if runErr.Valid {
			run.Error = runErr.String
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}
