// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PollConfig holds settings for the export completion poll.
type PollConfig struct {
	// Interval is the delay between consecutive size checks (default 1s).
	Interval time.Duration `json:"interval" yaml:"interval"`

	// Attempts is the maximum number of size checks before giving up (default 300).
	Attempts int `json:"attempts" yaml:"attempts"`
}

// ExportConfig holds the settings for one export run. Every path the run
// reads or writes comes from here.
type ExportConfig struct {
	Poll PollConfig `json:"poll" yaml:"poll"`

	// SchemaPath is the XSD the hierarchy snapshot is validated against
	// (e.g. "0336.OneNoteApplication_2013.xsd").
	SchemaPath string `json:"schema" yaml:"schema"`

	// BackupsDir receives one package file per exported notebook.
	BackupsDir string `json:"backups_dir" yaml:"backups_dir"`

	// HierarchyPath is where the validated hierarchy snapshot is written.
	HierarchyPath string `json:"hierarchy_out" yaml:"hierarchy_out"`

	// LedgerPath is the SQLite run history database, by default
	// .onenote-export.db in BackupsDir.
	LedgerPath string `json:"ledger,omitempty" yaml:"ledger,omitempty"`

	// ReportPath is the YAML run report, by default export-report.yaml in
	// BackupsDir.
	ReportPath string `json:"report,omitempty" yaml:"report,omitempty"`
}
