// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report renders export progress and the end-of-run summary.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/onenote-export/pkg/types"
)

const barWidth = 30

var (
	failureHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	failureItem   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).PaddingLeft(2)
)

// Progress writes a count line when a batch starts and a progress bar line
// before each notebook.
type Progress struct {
	w     io.Writer
	bar   progress.Model
	total int
}

// NewProgress returns a Progress writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{
		w:   w,
		bar: progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth), progress.WithoutPercentage()),
	}
}

func (p *Progress) Start(total int) {
	p.total = total
	fmt.Fprintf(p.w, "%d notebooks to process\n", total)
}

func (p *Progress) Begin(index int, nb types.Notebook) {
	var pct float64
	if p.total > 0 {
		pct = float64(index-1) / float64(p.total)
	}
	fmt.Fprintf(p.w, "%s %d/%d %s\n", p.bar.ViewAs(pct), index, p.total, nb.Name)
}

// PrintFailures writes the list of failed notebook names. It writes nothing
// when names is empty.
func PrintFailures(w io.Writer, names []string) {
	if len(names) == 0 {
		return
	}
	fmt.Fprintln(w, failureHeader.Render("failed exports:"))
	for _, name := range names {
		fmt.Fprintln(w, failureItem.Render("- "+name))
	}
}

// Summary is the persisted record of one export run.
type Summary struct {
	RunID      string               `yaml:"run_id,omitempty"`
	StartedAt  time.Time            `yaml:"started_at"`
	FinishedAt time.Time            `yaml:"finished_at"`
	BackupsDir string               `yaml:"backups_dir"`
	Exported   int                  `yaml:"exported"`
	Skipped    int                  `yaml:"skipped"`
	Incomplete int                  `yaml:"incomplete"`
	Failed     int                  `yaml:"failed"`
	FailedList []string             `yaml:"failed_notebooks,omitempty"`
	Records    []types.ExportRecord `yaml:"records"`
}

// WriteYAML writes s to path, creating the parent directory if needed.
func WriteYAML(path string, s Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadYAML reads a summary written by WriteYAML.
func ReadYAML(path string) (Summary, error) {
	var s Summary
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return s, nil
}
