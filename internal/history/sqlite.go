// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/1001011000101101/lers-plugins-sub000/internal/batch"
)

// SQLiteStore implements Store on modernc.org/sqlite (pure Go, no cgo).
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if needed initializes) the history database.
// Use ":memory:" for tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: ping database: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS batches (
			batch_id     TEXT PRIMARY KEY,
			template     TEXT NOT NULL,
			state        TEXT NOT NULL,
			total        INTEGER NOT NULL,
			succeeded    INTEGER NOT NULL,
			failed       INTEGER NOT NULL,
			skipped      INTEGER NOT NULL,
			summary_json TEXT NOT NULL,
			finished_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_batches_finished_at ON batches(finished_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, template string, summary *batch.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("history: marshal summary: %w", err)
	}

	query := `
		INSERT INTO batches (batch_id, template, state, total, succeeded, failed, skipped, summary_json, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(batch_id) DO UPDATE SET
			state        = excluded.state,
			total        = excluded.total,
			succeeded    = excluded.succeeded,
			failed       = excluded.failed,
			skipped      = excluded.skipped,
			summary_json = excluded.summary_json,
			finished_at  = excluded.finished_at
	`
	_, err = s.db.ExecContext(ctx, query,
		summary.BatchID,
		template,
		string(summary.State),
		summary.Total,
		summary.Succeeded,
		summary.Failed,
		summary.Skipped,
		string(payload),
		summary.FinishedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("history: save batch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT batch_id, template, state, total, succeeded, failed, skipped, finished_at
		FROM batches ORDER BY finished_at DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		var (
			rec        Record
			finishedAt string
		)
		if err := rows.Scan(&rec.BatchID, &rec.Template, &rec.State, &rec.Total,
			&rec.Succeeded, &rec.Failed, &rec.Skipped, &finishedAt); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		t, err := time.Parse(time.RFC3339, finishedAt)
		if err != nil {
			return nil, fmt.Errorf("history: parse finished_at %q: %w", finishedAt, err)
		}
		rec.FinishedAt = t
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate rows: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Load(ctx context.Context, batchID string) (*batch.Summary, error) {
	row := s.db.QueryRowContext(ctx, `SELECT summary_json FROM batches WHERE batch_id = ?`, batchID)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: scan row: %w", err)
	}

	var summary batch.Summary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return nil, fmt.Errorf("history: unmarshal summary: %w", err)
	}
	return &summary, nil
}

func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339)
	result, err := s.db.ExecContext(ctx, `DELETE FROM batches WHERE finished_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: cleanup batches: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: rows affected: %w", err)
	}
	return deleted, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
