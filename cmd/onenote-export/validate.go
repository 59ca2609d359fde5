// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/onenote-export/internal/export"
	"github.com/pdiddy/onenote-export/internal/hierarchy"
	"github.com/pdiddy/onenote-export/internal/ledger"
	"github.com/pdiddy/onenote-export/internal/onenote"
)

var validateCmd = &cobra.Command{
	Use:   "validate [hierarchy.xml]",
	Short: "Validate a hierarchy snapshot and list its notebooks",
	Long: `Validate checks a hierarchy XML file against the schema without exporting
anything. With no argument it reads the snapshot written by the last export
(hierarchy.xml). Use --live to fetch the hierarchy from OneNote instead.

Each notebook is listed with the package file it would be exported to and,
when the ledger has one, the time of its last successful export.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().Bool("live", false, "fetch the hierarchy from the running OneNote application")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := exportConfig()
	out := cmd.OutOrStdout()
	live, _ := cmd.Flags().GetBool("live")

	var data []byte
	switch {
	case live:
		app, err := newApplication()
		if err != nil {
			return fmt.Errorf("connecting to OneNote: %w", err)
		}
		raw, err := app.GetHierarchy(ctx, "", onenote.ScopeNotebooks)
		if err != nil {
			return fmt.Errorf("retrieving hierarchy: %w", err)
		}
		data = []byte(raw)
	default:
		path := cfg.HierarchyPath
		if len(args) == 1 {
			path = args[0]
		}
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading hierarchy: %w", err)
		}
	}

	doc, err := hierarchy.ValidateWithSchemaFile(data, cfg.SchemaPath)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "XML successfully validated against schema")

	notebooks := export.AssignPaths(doc.Notebooks(), cfg.BackupsDir, onenote.FormatOneNotePackage.Extension())
	fmt.Fprintf(out, "%d notebooks\n", len(notebooks))

	var led *ledger.Ledger
	if _, err := os.Stat(cfg.LedgerPath); err == nil {
		led, err = ledger.Open(cfg.LedgerPath)
		if err != nil {
			return err
		}
		defer led.Close()
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPACKAGE\tLAST EXPORT")
	for _, nb := range notebooks {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", nb.Name, nb.ExportPath, lastExport(ctx, led, nb.ID))
	}
	return tw.Flush()
}

func lastExport(ctx context.Context, led *ledger.Ledger, id string) string {
	if led == nil {
		return "-"
	}
	_, at, found, err := led.LastExport(ctx, id)
	if err != nil || !found {
		return "-"
	}
	return at.Local().Format("2006-01-02 15:04")
}
