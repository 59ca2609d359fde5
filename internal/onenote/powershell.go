// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package onenote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"unicode/utf16"
)

const (
	binPowerShell = "powershell.exe"
	binPwsh       = "pwsh"

	// schema2013 is the xsSchema argument selecting the OneNote 2013 schema.
	schema2013 = 2
)

// ErrNoPowerShell is returned when no PowerShell binary is found on PATH.
var ErrNoPowerShell = errors.New("no PowerShell available")

// prelude creates the COM object and forces UTF-8 on stdout so notebook
// names survive the round trip.
const prelude = `$ErrorActionPreference = 'Stop'
[Console]::OutputEncoding = [System.Text.Encoding]::UTF8
$app = New-Object -ComObject OneNote.Application
try {
%s
} finally {
  [void][System.Runtime.InteropServices.Marshal]::ReleaseComObject($app)
}
`

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// PowerShell implements Application by running short scripts against the
// OneNote.Application COM object in a PowerShell child process.
type PowerShell struct {
	bin  string
	exec executor
}

var _ Application = (*PowerShell)(nil)

var defaultExec = &osExecutor{}

// NewPowerShell locates Windows PowerShell, falling back to PowerShell 7
// (pwsh). It returns ErrNoPowerShell if neither is on PATH.
func NewPowerShell() (*PowerShell, error) {
	return newPowerShell(defaultExec)
}

func newPowerShell(e executor) (*PowerShell, error) {
	for _, bin := range []string{binPowerShell, binPwsh} {
		if _, err := e.LookPath(bin); err == nil {
			return &PowerShell{bin: bin, exec: e}, nil
		}
	}
	return nil, fmt.Errorf("%w: neither %s nor %s found on PATH", ErrNoPowerShell, binPowerShell, binPwsh)
}

// Name returns the PowerShell binary in use.
func (p *PowerShell) Name() string { return p.bin }

func (p *PowerShell) GetHierarchy(ctx context.Context, startNodeID string, scope HierarchyScope) (string, error) {
	body := fmt.Sprintf(`  $xml = ''
  $app.GetHierarchy(%s, %d, [ref]$xml, %d)
  [Console]::Out.Write($xml)`, quote(startNodeID), int(scope), schema2013)

	var out bytes.Buffer
	if err := p.run(ctx, body, &out); err != nil {
		return "", fmt.Errorf("getting hierarchy: %w", err)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("getting hierarchy: OneNote returned an empty document")
	}
	return out.String(), nil
}

func (p *PowerShell) Publish(ctx context.Context, id, path string, format PublishFormat) error {
	body := fmt.Sprintf(`  $app.Publish(%s, %s, %d, '')`, quote(id), quote(path), int(format))
	if err := p.run(ctx, body, io.Discard); err != nil {
		return fmt.Errorf("publishing %s: %w", id, err)
	}
	return nil
}

func (p *PowerShell) run(ctx context.Context, body string, stdout io.Writer) error {
	script := fmt.Sprintf(prelude, body)
	args := []string{
		"-NoProfile",
		"-NonInteractive",
		"-ExecutionPolicy", "Bypass",
		"-EncodedCommand", encodeCommand(script),
	}

	var stderr bytes.Buffer
	if err := p.exec.Run(ctx, p.bin, args, stdout, &stderr); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", p.bin, err, msg)
		}
		return fmt.Errorf("%s: %w", p.bin, err)
	}
	return nil
}

// singleQuotes doubles every character PowerShell treats as a single quote,
// which includes the typographic quotes U+2018 to U+201B.
var singleQuotes = strings.NewReplacer(
	"'", "''",
	"\u2018", "\u2018\u2018",
	"\u2019", "\u2019\u2019",
	"\u201A", "\u201A\u201A",
	"\u201B", "\u201B\u201B",
)

// quote renders s as a single-quoted PowerShell string literal.
func quote(s string) string {
	return "'" + singleQuotes.Replace(s) + "'"
}

// encodeCommand produces the base64 UTF-16LE form expected by -EncodedCommand.
func encodeCommand(script string) string {
	units := utf16.Encode([]rune(script))
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	return base64.StdEncoding.EncodeToString(buf)
}
