// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/onenote-export/internal/export"
	"github.com/pdiddy/onenote-export/internal/hierarchy"
	"github.com/pdiddy/onenote-export/internal/ledger"
	"github.com/pdiddy/onenote-export/internal/logger"
	"github.com/pdiddy/onenote-export/internal/onenote"
	"github.com/pdiddy/onenote-export/internal/report"
	"github.com/pdiddy/onenote-export/pkg/types"
)

// newApplication connects to OneNote. Tests replace it with a fake.
var newApplication = func() (onenote.Application, error) {
	ps, err := onenote.NewPowerShell()
	if err != nil {
		return nil, err
	}
	logger.Debug("using PowerShell host", logger.Fields{"bin": ps.Name()})
	return ps, nil
}

// errValidation marks a run aborted because the hierarchy did not validate.
var errValidation = errors.New("aborting export, cannot confirm hierarchy compatibility")

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every notebook that has not been exported yet",
	Long: `Export fetches the notebook hierarchy from OneNote, validates it against
the OneNote 2013 schema, and writes it to hierarchy.xml. Each notebook is
then published as a .onepkg package into the backups directory. Notebooks
whose package already exists are skipped.

After each publish the package file is polled until its size stops
changing. Notebooks whose file never appears are reported as failed.
The run is recorded in the ledger and in export-report.yaml.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("hierarchy-out", defaultHierarchyOut, "where the validated hierarchy snapshot is written")
	exportCmd.Flags().Duration("poll-interval", export.DefaultPollInterval, "delay between file size checks")
	exportCmd.Flags().Int("poll-attempts", export.DefaultPollAttempts, "maximum file size checks per notebook")
	exportCmd.Flags().String("report", "", "YAML run report (default: <backups-dir>/export-report.yaml)")

	_ = viper.BindPFlag("hierarchy_out", exportCmd.Flags().Lookup("hierarchy-out"))
	_ = viper.BindPFlag("poll_interval", exportCmd.Flags().Lookup("poll-interval"))
	_ = viper.BindPFlag("poll_attempts", exportCmd.Flags().Lookup("poll-attempts"))
	_ = viper.BindPFlag("report", exportCmd.Flags().Lookup("report"))

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := exportConfig()
	out := cmd.OutOrStdout()

	app, err := newApplication()
	if err != nil {
		return fmt.Errorf("connecting to OneNote: %w", err)
	}

	doc, err := fetchHierarchy(ctx, app, cfg, out)
	if err != nil {
		return err
	}

	notebooks := doc.Notebooks()
	logger.Info("hierarchy loaded", logger.Fields{"notebooks": len(notebooks)})

	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer led.Close()

	started := time.Now()
	run, err := led.StartRun(ctx, started)
	if err != nil {
		return err
	}

	exporter := export.New(app, cfg, out)
	exporter.Observer = report.NewProgress(out)
	result, runErr := exporter.ExportBatch(ctx, notebooks)

	// Persist whatever was processed, including a cancelled run.
	if err := recordRun(context.WithoutCancel(ctx), led, run, cfg, result, started); err != nil {
		logger.Error("recording run", err, logger.Fields{"run": run.ID})
	}

	report.PrintFailures(out, result.FailedNames())

	if runErr != nil {
		return fmt.Errorf("export stopped: %w", runErr)
	}
	if result.HasFailures() {
		return fmt.Errorf("%d notebook(s) failed export", result.Failed)
	}
	return nil
}

// fetchHierarchy retrieves the notebook hierarchy, validates it, and writes
// the snapshot. Any failure aborts the run before a notebook is exported.
func fetchHierarchy(ctx context.Context, app onenote.Application, cfg types.ExportConfig, out io.Writer) (*hierarchy.Document, error) {
	raw, err := app.GetHierarchy(ctx, "", onenote.ScopeNotebooks)
	if err != nil {
		return nil, fmt.Errorf("retrieving hierarchy: %w", err)
	}

	doc, err := hierarchy.ValidateWithSchemaFile([]byte(raw), cfg.SchemaPath)
	if err != nil {
		switch {
		case errors.Is(err, hierarchy.ErrMalformed):
			fmt.Fprintf(out, "XML syntax error: %v\n", err)
		case errors.Is(err, hierarchy.ErrSchemaViolation):
			fmt.Fprintf(out, "Schema validation error: %v\n", err)
		default:
			return nil, err
		}
		logger.Error("hierarchy validation failed", err, logger.Fields{"schema": cfg.SchemaPath})
		fmt.Fprintln(out, "Incorrect OneNote Version? Retrieved hierarchy does not comply with OneNote 2013 schema")
		fmt.Fprintln(out, "Aborting export, cannot confirm hierarchy compatibility")
		return nil, fmt.Errorf("%w: %w", errValidation, err)
	}
	fmt.Fprintln(out, "XML successfully validated against schema")

	if err := doc.WriteFile(cfg.HierarchyPath); err != nil {
		return nil, fmt.Errorf("writing hierarchy snapshot: %w", err)
	}
	return doc, nil
}

func recordRun(ctx context.Context, led *ledger.Ledger, run ledger.Run, cfg types.ExportConfig, result export.BatchResult, started time.Time) error {
	finished := time.Now()
	if err := led.RecordAll(ctx, run.ID, result.Records); err != nil {
		return err
	}
	counts := ledger.Counts{
		Exported:   result.Exported,
		Skipped:    result.Skipped,
		Incomplete: result.Incomplete,
		Failed:     result.Failed,
	}
	if err := led.FinishRun(ctx, run.ID, finished, counts); err != nil {
		return err
	}

	summary := report.Summary{
		RunID:      run.ID,
		StartedAt:  started,
		FinishedAt: finished,
		BackupsDir: cfg.BackupsDir,
		Exported:   result.Exported,
		Skipped:    result.Skipped,
		Incomplete: result.Incomplete,
		Failed:     result.Failed,
		FailedList: result.FailedNames(),
		Records:    result.Records,
	}
	return report.WriteYAML(cfg.ReportPath, summary)
}
