// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pdiddy/onenote-export/internal/export"
	"github.com/pdiddy/onenote-export/pkg/types"
)

const (
	defaultSchema       = "0336.OneNoteApplication_2013.xsd"
	defaultHierarchyOut = "hierarchy.xml"
	ledgerFile          = ".onenote-export.db"
	reportFile          = "export-report.yaml"
)

func init() {
	viper.SetDefault("schema", defaultSchema)
	viper.SetDefault("backups_dir", "Backups")
	viper.SetDefault("hierarchy_out", defaultHierarchyOut)
	viper.SetDefault("poll_interval", export.DefaultPollInterval)
	viper.SetDefault("poll_attempts", export.DefaultPollAttempts)
	viper.SetDefault("log_level", "info")
}

// exportConfig resolves the run settings from flags, environment, and the
// config file. Ledger and report paths default to files in the backups
// directory.
func exportConfig() types.ExportConfig {
	cfg := types.ExportConfig{
		Poll: types.PollConfig{
			Interval: viper.GetDuration("poll_interval"),
			Attempts: viper.GetInt("poll_attempts"),
		},
		SchemaPath:    viper.GetString("schema"),
		BackupsDir:    viper.GetString("backups_dir"),
		HierarchyPath: viper.GetString("hierarchy_out"),
		LedgerPath:    viper.GetString("ledger"),
		ReportPath:    viper.GetString("report"),
	}
	if cfg.LedgerPath == "" {
		cfg.LedgerPath = filepath.Join(cfg.BackupsDir, ledgerFile)
	}
	if cfg.ReportPath == "" {
		cfg.ReportPath = filepath.Join(cfg.BackupsDir, reportFile)
	}
	return cfg
}
