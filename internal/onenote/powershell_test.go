// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package onenote

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool
	stdout        string
	stderr        string
	err           error

	gotName   string
	gotScript string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return `C:\Windows\System32\` + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	m.gotName = name
	for i, a := range args {
		if a == "-EncodedCommand" && i+1 < len(args) {
			m.gotScript = decodeCommand(args[i+1])
		}
	}
	_, _ = io.WriteString(stdout, m.stdout)
	_, _ = io.WriteString(stderr, m.stderr)
	return m.err
}

func decodeCommand(s string) string {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return ""
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(raw[i*2:])
	}
	return string(utf16.Decode(units))
}

func TestNewPowerShell(t *testing.T) {
	tests := []struct {
		name     string
		bins     map[string]bool
		wantName string
		wantErr  bool
	}{
		{name: "windows powershell", bins: map[string]bool{"powershell.exe": true}, wantName: "powershell.exe"},
		{name: "pwsh fallback", bins: map[string]bool{"pwsh": true}, wantName: "pwsh"},
		{name: "both present, windows powershell preferred", bins: map[string]bool{"powershell.exe": true, "pwsh": true}, wantName: "powershell.exe"},
		{name: "neither present", bins: map[string]bool{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := newPowerShell(&mockExecutor{availableBins: tt.bins})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoPowerShell)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, ps.Name())
		})
	}
}

func TestGetHierarchy(t *testing.T) {
	m := &mockExecutor{
		availableBins: map[string]bool{"powershell.exe": true},
		stdout:        `<one:Notebooks xmlns:one="` + Namespace2013 + `"/>`,
	}
	ps, err := newPowerShell(m)
	require.NoError(t, err)

	xml, err := ps.GetHierarchy(context.Background(), "", ScopeNotebooks)
	require.NoError(t, err)

	assert.Contains(t, xml, "one:Notebooks")
	assert.Equal(t, "powershell.exe", m.gotName)
	assert.Contains(t, m.gotScript, "New-Object -ComObject OneNote.Application")
	assert.Contains(t, m.gotScript, "$app.GetHierarchy('', 2, [ref]$xml, 2)")
}

func TestGetHierarchy_Empty(t *testing.T) {
	m := &mockExecutor{availableBins: map[string]bool{"pwsh": true}}
	ps, err := newPowerShell(m)
	require.NoError(t, err)

	_, err = ps.GetHierarchy(context.Background(), "", ScopeNotebooks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty document")
}

func TestPublish(t *testing.T) {
	m := &mockExecutor{availableBins: map[string]bool{"powershell.exe": true}}
	ps, err := newPowerShell(m)
	require.NoError(t, err)

	err = ps.Publish(context.Background(), "{ABC}{1}{B0}", `C:\Backups\Bob's Notes.onepkg`, FormatOneNotePackage)
	require.NoError(t, err)
	assert.Contains(t, m.gotScript, `$app.Publish('{ABC}{1}{B0}', 'C:\Backups\Bob''s Notes.onepkg', 1, '')`)
}

func TestPublish_ErrorIncludesStderr(t *testing.T) {
	m := &mockExecutor{
		availableBins: map[string]bool{"powershell.exe": true},
		stderr:        "Exception from HRESULT: 0x80042014\n",
		err:           errors.New("exit status 1"),
	}
	ps, err := newPowerShell(m)
	require.NoError(t, err)

	err = ps.Publish(context.Background(), "{ABC}", `C:\out.onepkg`, FormatOneNotePackage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing {ABC}")
	assert.Contains(t, err.Error(), "0x80042014")
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "''", quote(""))
	assert.Equal(t, "'plain'", quote("plain"))
	assert.Equal(t, "'it''s'", quote("it's"))
	assert.Equal(t, "'Pat\u2019\u2019s notes'", quote("Pat\u2019s notes"))
	assert.Equal(t, "'\u2018\u2018quoted\u2019\u2019'", quote("\u2018quoted\u2019"))
	assert.Equal(t, "'low\u201A\u201A high\u201B\u201B'", quote("low\u201A high\u201B"))
	assert.Equal(t, "'mixed''\u2019\u2019'", quote("mixed'\u2019"))
}

func TestPublish_TypographicQuotesStayInsideLiteral(t *testing.T) {
	m := &mockExecutor{availableBins: map[string]bool{"powershell.exe": true}}
	ps, err := newPowerShell(m)
	require.NoError(t, err)

	// An unpaired U+2019 would end the literal and run the rest as script.
	path := "C:\\Backups\\Pat\u2019s Notes\u2019; Remove-Item C:\\Backups -Recurse; \u2018.onepkg"
	require.NoError(t, ps.Publish(context.Background(), "{ABC}{1}{B0}", path, FormatOneNotePackage))

	want := "$app.Publish('{ABC}{1}{B0}', 'C:\\Backups\\Pat\u2019\u2019s Notes\u2019\u2019; Remove-Item C:\\Backups -Recurse; \u2018\u2018.onepkg', 1, '')"
	assert.Contains(t, m.gotScript, want)

	lit := quote(path)
	inner := strings.TrimSuffix(strings.TrimPrefix(lit, "'"), "'")
	for _, q := range []string{"'", "\u2018", "\u2019", "\u201A", "\u201B"} {
		assert.Zero(t, strings.Count(strings.ReplaceAll(inner, q+q, ""), q), "unpaired %q", q)
	}
}

func TestEncodeCommandRoundTrip(t *testing.T) {
	script := "Write-Output 'Ünïcode notebook'"
	assert.Equal(t, script, decodeCommand(encodeCommand(script)))
}

func TestPublishFormatExtension(t *testing.T) {
	assert.Equal(t, ".onepkg", FormatOneNotePackage.Extension())
	assert.Equal(t, ".pdf", FormatPDF.Extension())
	assert.Equal(t, "", PublishFormat(99).Extension())
}
