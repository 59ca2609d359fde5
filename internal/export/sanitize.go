// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"path/filepath"
	"strings"

	"github.com/pdiddy/onenote-export/pkg/types"
)

// invalidChars are the characters Windows forbids in file names.
var invalidChars = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_",
	"/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeName replaces every character Windows forbids in file names with
// an underscore. Sanitizing a sanitized name returns it unchanged.
func SanitizeName(name string) string {
	return invalidChars.Replace(name)
}

// ExportPath returns the package file path for a notebook name.
func ExportPath(dir, name, ext string) string {
	return filepath.Join(dir, SanitizeName(name)+ext)
}

// AssignPaths returns a copy of notebooks with ExportPath set for every
// entry that does not already have one.
func AssignPaths(notebooks []types.Notebook, dir, ext string) []types.Notebook {
	out := make([]types.Notebook, len(notebooks))
	for i, nb := range notebooks {
		if nb.ExportPath == "" {
			nb.ExportPath = ExportPath(dir, nb.Name, ext)
		}
		out[i] = nb
	}
	return out
}
