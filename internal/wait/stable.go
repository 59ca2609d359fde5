// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package wait

import (
	"errors"
	"io/fs"

	"github.com/spf13/afero"
)

// SizeWatcher tracks the size of a file across successive checks.
type SizeWatcher struct {
	fs     afero.Fs
	path   string
	last   int64
	exists bool
}

// NewSizeWatcher returns a watcher for path on the given filesystem.
func NewSizeWatcher(fsys afero.Fs, path string) *SizeWatcher {
	return &SizeWatcher{fs: fsys, path: path, last: -1}
}

// Check reports true once two consecutive checks observe the same nonzero
// size. A missing file is not an error; it simply is not stable yet.
func (w *SizeWatcher) Check() (bool, error) {
	info, err := w.fs.Stat(w.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.exists = false
			return false, nil
		}
		return false, err
	}
	w.exists = true

	size := info.Size()
	if size == w.last && size > 0 {
		return true, nil
	}
	w.last = size
	return false, nil
}

// Size returns the last observed size, or -1 if the file was never seen.
func (w *SizeWatcher) Size() int64 {
	return w.last
}

// Exists reports whether the file existed at the most recent check.
func (w *SizeWatcher) Exists() bool {
	return w.exists
}
