// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/onenote-export/pkg/types"
)

// --- test helpers ---

func testLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Backups", ".onenote-export.db")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func record(id, name string, status types.ExportStatus) types.ExportRecord {
	return types.ExportRecord{
		Notebook: types.Notebook{ID: id, Name: name, ExportPath: filepath.Join("Backups", name+".onepkg")},
		Status:   status,
		Size:     1024,
		Attempts: 3,
		Duration: 2500 * time.Millisecond,
	}
}

// --- schema tests ---

func TestOpenCreatesSchema(t *testing.T) {
	l, path := testLedger(t)

	for _, table := range []string{"runs", "records"} {
		var count int
		err := l.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file not created at %s", path)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	l, path := testLedger(t)
	ctx := context.Background()
	run, err := l.StartRun(ctx, time.Now())
	require.NoError(t, err)
	require.NoError(t, l.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	runs, err := again.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

// --- run tests ---

func TestRunLifecycle(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	run, err := l.StartRun(ctx, started)
	require.NoError(t, err)
	assert.Len(t, run.ID, 36, "run IDs are UUIDs")

	runs, err := l.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.True(t, runs[0].FinishedAt.IsZero(), "unfinished run has no finish time")

	recs := []types.ExportRecord{
		record("{A}", "Work", types.ExportDone),
		record("{B}", "Home", types.ExportSkipped),
		record("{C}", "Ghost", types.ExportFailed),
	}
	recs[2].Error = "export file was not created"
	require.NoError(t, l.RecordAll(ctx, run.ID, recs))

	finished := started.Add(4 * time.Minute)
	require.NoError(t, l.FinishRun(ctx, run.ID, finished, Counts{Exported: 1, Skipped: 1, Failed: 1}))

	runs, err = l.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.True(t, started.Equal(got.StartedAt))
	assert.True(t, finished.Equal(got.FinishedAt))
	assert.Equal(t, 1, got.Exported)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, 0, got.Incomplete)
	assert.Equal(t, 1, got.Failed)

	stored, err := l.Records(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "Work", stored[0].Notebook.Name)
	assert.Equal(t, "Ghost", stored[2].Notebook.Name)
	assert.Equal(t, types.ExportFailed, stored[2].Status)
	assert.Equal(t, "export file was not created", stored[2].Error)
	assert.Equal(t, 2500*time.Millisecond, stored[0].Duration)
	assert.Equal(t, int64(1024), stored[0].Size)
	assert.Equal(t, 3, stored[0].Attempts)
}

func TestFinishRunUnknown(t *testing.T) {
	l, _ := testLedger(t)
	err := l.FinishRun(context.Background(), "missing", time.Now(), Counts{})
	assert.ErrorContains(t, err, "not found")
}

func TestRunsNewestFirstWithLimit(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := range 3 {
		run, err := l.StartRun(ctx, base.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		ids = append(ids, run.ID)
	}

	runs, err := l.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

// --- record tests ---

func TestRecordAll_SingleRecord(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()
	run, err := l.StartRun(ctx, time.Now())
	require.NoError(t, err)

	require.NoError(t, l.RecordAll(ctx, run.ID, []types.ExportRecord{record("{A}", "Work", types.ExportIncomplete)}))

	stored, err := l.Records(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, types.ExportIncomplete, stored[0].Status)
	assert.Empty(t, stored[0].Error)
}

func TestRecordsUnknownRun(t *testing.T) {
	l, _ := testLedger(t)
	stored, err := l.Records(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLastExport(t *testing.T) {
	l, _ := testLedger(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, _, found, err := l.LastExport(ctx, "{A}")
	require.NoError(t, err)
	assert.False(t, found)

	first, err := l.StartRun(ctx, base)
	require.NoError(t, err)
	require.NoError(t, l.RecordAll(ctx, first.ID, []types.ExportRecord{record("{A}", "Work", types.ExportDone)}))

	second, err := l.StartRun(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, l.RecordAll(ctx, second.ID, []types.ExportRecord{record("{A}", "Work", types.ExportFailed)}))

	rec, at, found, err := l.LastExport(ctx, "{A}")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, types.ExportDone, rec.Status)
	assert.True(t, base.Equal(at), "failed runs do not count as exports")
}
