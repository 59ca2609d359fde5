// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export publishes notebooks to package files and waits for each
// file to be completely written.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/pdiddy/onenote-export/internal/logger"
	"github.com/pdiddy/onenote-export/internal/onenote"
	"github.com/pdiddy/onenote-export/internal/wait"
	"github.com/pdiddy/onenote-export/pkg/types"
)

const (
	DefaultPollInterval = time.Second
	DefaultPollAttempts = 300
)

// Observer receives progress as a batch runs.
type Observer interface {
	// Start is called once with the number of notebooks in the batch.
	Start(total int)
	// Begin is called before each notebook is processed; index is 1-based.
	Begin(index int, nb types.Notebook)
}

// BatchResult holds the outcome of a batch export run.
type BatchResult struct {
	Exported   int
	Skipped    int
	Incomplete int
	Failed     int
	Records    []types.ExportRecord
}

// Total returns the number of notebooks processed.
func (r BatchResult) Total() int {
	return r.Exported + r.Skipped + r.Incomplete + r.Failed
}

// HasFailures reports whether any notebook failed to export.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// FailedNames returns the names of failed notebooks in processing order.
func (r BatchResult) FailedNames() []string {
	var names []string
	for _, rec := range r.Records {
		if rec.Failed() {
			names = append(names, rec.Notebook.Name)
		}
	}
	return names
}

func (r *BatchResult) add(rec types.ExportRecord) {
	switch rec.Status {
	case types.ExportDone:
		r.Exported++
	case types.ExportSkipped:
		r.Skipped++
	case types.ExportIncomplete:
		r.Incomplete++
	case types.ExportFailed:
		r.Failed++
	}
	r.Records = append(r.Records, rec)
}

// Exporter publishes notebooks through a OneNote Application. Fs and Clock
// default to the OS filesystem and real time; tests replace them.
type Exporter struct {
	App      onenote.Application
	Fs       afero.Fs
	Clock    wait.Clock
	Format   onenote.PublishFormat
	Observer Observer

	dir  string
	poll types.PollConfig
	w    io.Writer
}

// New returns an Exporter writing package files into cfg.BackupsDir and
// progress lines to w.
func New(app onenote.Application, cfg types.ExportConfig, w io.Writer) *Exporter {
	poll := cfg.Poll
	if poll.Interval <= 0 {
		poll.Interval = DefaultPollInterval
	}
	if poll.Attempts <= 0 {
		poll.Attempts = DefaultPollAttempts
	}
	return &Exporter{
		App:    app,
		Fs:     afero.NewOsFs(),
		Clock:  wait.RealClock{},
		Format: onenote.FormatOneNotePackage,
		dir:    cfg.BackupsDir,
		poll:   poll,
		w:      w,
	}
}

// Dir returns the directory package files are written to.
func (e *Exporter) Dir() string { return e.dir }

// ExportNotebook exports one notebook. If the package file already exists
// it is skipped without calling OneNote. Otherwise it publishes the notebook
// and polls until the file size is stable or the attempt limit is reached.
func (e *Exporter) ExportNotebook(ctx context.Context, nb types.Notebook) types.ExportRecord {
	if nb.ExportPath == "" {
		nb.ExportPath = ExportPath(e.dir, nb.Name, e.Format.Extension())
	}
	rec := types.ExportRecord{Notebook: nb}
	start := time.Now()

	fmt.Fprintf(e.w, "Exporting: %s\n", nb.Name)

	if e.exists(nb.ExportPath) {
		fmt.Fprintf(e.w, "%s already exported, skipping\n", nb.Name)
		rec.Status = types.ExportSkipped
		return e.finish(rec, start)
	}

	if SanitizeName(nb.Name) != nb.Name {
		fmt.Fprintf(e.w, "Notebook '%s' being saved as %s\n", nb.Name, filepath.Base(nb.ExportPath))
	}

	if err := e.App.Publish(ctx, nb.ID, nb.ExportPath, e.Format); err != nil {
		logger.Error("publish failed", err, logger.Fields{"notebook": nb.Name, "id": nb.ID})
		rec.Status = types.ExportFailed
		rec.Error = err.Error()
		return e.finish(rec, start)
	}

	watcher := wait.NewSizeWatcher(e.Fs, nb.ExportPath)
	poller := wait.Poller{Interval: e.poll.Interval, Attempts: e.poll.Attempts, Clock: e.Clock}
	attempts, err := poller.Until(ctx, watcher.Check)
	rec.Attempts = attempts
	if size := watcher.Size(); size > 0 {
		rec.Size = size
	}

	switch {
	case err == nil:
		rec.Status = types.ExportDone
		logger.Debug("export complete", logger.Fields{"notebook": nb.Name, "size": rec.Size, "attempts": attempts})
	case errors.Is(err, wait.ErrTimeout):
		limit := time.Duration(e.poll.Attempts) * e.poll.Interval
		fmt.Fprintf(e.w, "Warning: Export file %s may not be complete after %s.\n", nb.ExportPath, limit)
		logger.Warn("export may be incomplete", logger.Fields{
			"notebook": nb.Name,
			"path":     nb.ExportPath,
			"attempts": attempts,
			"exists":   watcher.Exists(),
		})
		if watcher.Exists() {
			rec.Status = types.ExportIncomplete
		} else {
			rec.Status = types.ExportFailed
			rec.Error = "export file was not created"
		}
	default:
		rec.Status = types.ExportFailed
		rec.Error = err.Error()
	}
	return e.finish(rec, start)
}

func (e *Exporter) finish(rec types.ExportRecord, start time.Time) types.ExportRecord {
	rec.Duration = time.Since(start)
	return rec
}

// ExportBatch exports notebooks in order, continuing after individual
// failures. It stops early only when ctx is cancelled, returning the partial
// result together with ctx.Err().
func (e *Exporter) ExportBatch(ctx context.Context, notebooks []types.Notebook) (BatchResult, error) {
	var result BatchResult

	if err := e.Fs.MkdirAll(e.dir, 0o755); err != nil {
		return result, fmt.Errorf("creating export directory %s: %w", e.dir, err)
	}

	notebooks = AssignPaths(notebooks, e.dir, e.Format.Extension())
	if e.Observer != nil {
		e.Observer.Start(len(notebooks))
	}

	for i, nb := range notebooks {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if e.Observer != nil {
			e.Observer.Begin(i+1, nb)
		}
		result.add(e.ExportNotebook(ctx, nb))
	}

	fmt.Fprintf(e.w, "\nBatch summary: %d exported, %d skipped, %d incomplete, %d failed (total: %d)\n",
		result.Exported, result.Skipped, result.Incomplete, result.Failed, result.Total())
	return result, ctx.Err()
}

func (e *Exporter) exists(path string) bool {
	_, err := e.Fs.Stat(path)
	return err == nil
}
