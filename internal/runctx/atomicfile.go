package runctx

import (
	"os"
	"path/filepath"
)

// AtomicFile writes to a working name and only becomes visible under its
// final name once Finalize is called, so a run that crashes mid-write never
// leaves a half-written file at the path a reader would look for.
type AtomicFile struct {
	tmpPath, finalPath string
	f                  *os.File
}

// NewAtomicFile creates "<dir>/<name>.tmp" for writing; Finalize renames it
// to "<dir>/<name>".
func NewAtomicFile(dir, name string) (*AtomicFile, error) {
	final := filepath.Join(dir, name)
	f, err := os.Create(final + ".tmp")
	if err != nil {
		return nil, err
	}
	return &AtomicFile{tmpPath: final + ".tmp", finalPath: final, f: f}, nil
}

func (a *AtomicFile) Write(p []byte) (int, error) { return a.f.Write(p) }

// Close closes the underlying handle without renaming it into place. Use
// Finalize to publish the file under its final name.
func (a *AtomicFile) Close() error { return a.f.Close() }

// Finalize closes the handle and renames the working file to its final
// name. Safe to call more than once; later calls are no-ops.
func (a *AtomicFile) Finalize() error {
	if a.f == nil {
		return nil
	}
	if err := a.f.Close(); err != nil {
		return err
	}
	a.f = nil
	return os.Rename(a.tmpPath, a.finalPath)
}
