// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/1001011000101101/lers-plugins-sub000/internal/batch"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSummary(id string, finished time.Time) *batch.Summary {
	return &batch.Summary{
		BatchID:    id,
		State:      batch.StateDone,
		StartedAt:  finished.Add(-5 * time.Minute),
		FinishedAt: finished,
		Total:      3,
		Succeeded:  2,
		Failed:     1,
		Results: []batch.Result{
			{Server: "local", Success: true},
			{Server: "north", Success: true},
			{Server: "south", Error: "server unavailable"},
		},
		ExampleErrors: []string{"server unavailable"},
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	summary := sampleSummary("b-1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, "Monthly consumption", summary))

	loaded, err := store.Load(ctx, "b-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, summary.BatchID, loaded.BatchID)
	require.Equal(t, summary.Total, loaded.Total)
	require.Len(t, loaded.Results, 3)
	require.Equal(t, "server unavailable", loaded.Results[2].Error)
}

func TestLoadUnknownBatch(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.Load(context.Background(), "no-such-batch")
	require.NoError(t, err)
	require.Nil(t, loaded)
}

func TestSaveIsUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	summary := sampleSummary("b-1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(ctx, "Monthly", summary))

	summary.State = batch.StateCancelled
	require.NoError(t, store.Save(ctx, "Monthly", summary))

	records, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, string(batch.StateCancelled), records[0].State)
}

func TestListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, "a", sampleSummary("b-old", base.Add(-2*time.Hour))))
	require.NoError(t, store.Save(ctx, "b", sampleSummary("b-new", base)))
	require.NoError(t, store.Save(ctx, "c", sampleSummary("b-mid", base.Add(-time.Hour))))

	records, err := store.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "b-new", records[0].BatchID)
	require.Equal(t, "b-mid", records[1].BatchID)
}

func TestCleanup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "a", sampleSummary("b-old", time.Now().UTC().Add(-100*24*time.Hour))))
	require.NoError(t, store.Save(ctx, "b", sampleSummary("b-new", time.Now().UTC())))

	deleted, err := store.Cleanup(ctx, 90*24*time.Hour)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	records, err := store.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "b-new", records[0].BatchID)
}
