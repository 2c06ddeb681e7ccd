// SPDX-License-Identifier: MIT

// Package history persists batch summaries so operators can review past
// runs without keeping terminal scrollback.
package history

import (
	"context"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/batch"
)

// Record is one stored batch run.
type Record struct {
	BatchID    string    `json:"batchId"`
	Template   string    `json:"template"`
	State      string    `json:"state"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Store persists batch summaries.
type Store interface {
	// Save records a completed batch. The full summary is kept alongside the
	// indexed columns.
	Save(ctx context.Context, template string, summary *batch.Summary) error
	// List returns the most recent runs, newest first.
	List(ctx context.Context, limit int) ([]Record, error)
	// Load returns the full summary of one run, or (nil, nil) if unknown.
	Load(ctx context.Context, batchID string) (*batch.Summary, error)
	// Cleanup drops runs older than maxAge and reports how many were removed.
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)
	Close() error
}
