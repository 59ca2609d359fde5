// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/onenote-export/pkg/types"
)

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)

	p.Start(2)
	p.Begin(1, types.Notebook{Name: "Work"})
	p.Begin(2, types.Notebook{Name: "Home"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "2 notebooks to process", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], "1/2 Work"), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "2/2 Home"), lines[2])
}

func TestProgress_EmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)
	p.Start(0)
	assert.Equal(t, "0 notebooks to process\n", buf.String())
}

func TestPrintFailures(t *testing.T) {
	var buf bytes.Buffer
	PrintFailures(&buf, nil)
	assert.Empty(t, buf.String())

	PrintFailures(&buf, []string{"Ghost", "Broken"})
	out := buf.String()
	assert.Contains(t, out, "failed exports:")
	assert.Contains(t, out, "- Ghost")
	assert.Contains(t, out, "- Broken")
	assert.Less(t, strings.Index(out, "Ghost"), strings.Index(out, "Broken"))
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Backups", "export-report.yaml")
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := Summary{
		RunID:      "run-1",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Minute),
		BackupsDir: "Backups",
		Exported:   1,
		Failed:     1,
		FailedList: []string{"Ghost"},
		Records: []types.ExportRecord{
			{Notebook: types.Notebook{ID: "{W}", Name: "Work", ExportPath: "Backups/Work.onepkg"}, Status: types.ExportDone, Size: 42, Attempts: 2},
			{Notebook: types.Notebook{ID: "{G}", Name: "Ghost", ExportPath: "Backups/Ghost.onepkg"}, Status: types.ExportFailed, Error: "export file was not created"},
		},
	}
	require.NoError(t, WriteYAML(path, s))

	got, err := ReadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, []string{"Ghost"}, got.FailedList)
	require.Len(t, got.Records, 2)
	assert.Equal(t, types.ExportFailed, got.Records[1].Status)
	assert.Equal(t, int64(42), got.Records[0].Size)
}
