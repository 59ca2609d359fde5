// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ExportStatus indicates the outcome of exporting one notebook.
type ExportStatus string

const (
	ExportDone       ExportStatus = "exported"
	ExportSkipped    ExportStatus = "skipped"
	ExportIncomplete ExportStatus = "incomplete"
	ExportFailed     ExportStatus = "failed"
)

// Notebook is a notebook entry discovered in the hierarchy snapshot.
type Notebook struct {
	// ID is the opaque identifier assigned by OneNote.
	ID string `json:"id" yaml:"id"`

	// Name is the display name of the notebook.
	Name string `json:"name" yaml:"name"`

	// Nickname is the user-assigned nickname, if any.
	Nickname string `json:"nickname,omitempty" yaml:"nickname,omitempty"`

	// Location is the notebook's storage path or URL as reported by OneNote.
	Location string `json:"location,omitempty" yaml:"location,omitempty"`

	// LastModified is the notebook's last modification time, when reported.
	LastModified time.Time `json:"last_modified,omitempty" yaml:"last_modified,omitempty"`

	// ExportPath is the destination package file derived from the sanitized name.
	ExportPath string `json:"export_path" yaml:"export_path"`
}

// ExportRecord pairs a notebook with the outcome of its export.
type ExportRecord struct {
	Notebook Notebook     `json:"notebook" yaml:"notebook"`
	Status   ExportStatus `json:"status" yaml:"status"`

	// Size is the last observed size of the package file in bytes.
	Size int64 `json:"size" yaml:"size"`

	// Attempts is the number of size checks performed.
	Attempts int `json:"attempts" yaml:"attempts"`

	Duration time.Duration `json:"duration" yaml:"duration"`
	Error    string        `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the record belongs on the failure list.
func (r ExportRecord) Failed() bool {
	return r.Status == ExportFailed
}
