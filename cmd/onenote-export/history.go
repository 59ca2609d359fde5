// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/onenote-export/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show previous export runs",
	Long: `History lists recent export runs from the ledger, newest first. Pass a
run ID to list the outcome of every notebook in that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "maximum number of runs to list (0 for all)")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := exportConfig()
	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer led.Close()

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		return printRecords(cmd, led, args[0], out)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := led.Runs(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tEXPORTED\tSKIPPED\tINCOMPLETE\tFAILED")
	for _, r := range runs {
		duration := "interrupted"
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), duration,
			r.Exported, r.Skipped, r.Incomplete, r.Failed)
	}
	return tw.Flush()
}

func printRecords(cmd *cobra.Command, led *ledger.Ledger, runID string, out io.Writer) error {
	recs, err := led.Records(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		return fmt.Errorf("no records for run %s", runID)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NOTEBOOK\tSTATUS\tSIZE\tCHECKS\tERROR")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			rec.Notebook.Name, rec.Status, rec.Size, rec.Attempts, rec.Error)
	}
	return tw.Flush()
}
