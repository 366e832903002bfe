// Package atomicfile provides crash-safe file writing using temporary files
// and atomic renames. The config file and the PID file go through it so a
// reader never observes a half-written document.

package atomicfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrExists is returned by [WriteNew] when the target already exists.
var ErrExists = errors.New("file already exists")

// Write atomically replaces path with data. The temp file lives next to the
// target so the final rename stays on one filesystem.
func Write(path string, data []byte, perm os.FileMode) error {
	tmpName, err := stage(path, data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// WriteNew is [Write] that refuses to replace an existing file. The parent
// directory is created when missing.
func WriteNew(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	if _, err := os.Lstat(path); err == nil {
		return fmt.Errorf("%s: %w", path, ErrExists)
	}
	tmpName, err := stage(path, data, perm)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)
	// Link fails if path appeared since the Lstat above.
	if err := os.Link(tmpName, path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
		return fmt.Errorf("link temp file: %w", err)
	}
	return nil
}

// stage writes data to a synced temp file beside path and returns its name.
// On failure the temp file is removed.
func stage(path string, data []byte, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := f.Name()
	fail := func(step string, err error) (string, error) {
		f.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%s temp file: %w", step, err)
	}

	if _, err := f.Write(data); err != nil {
		return fail("write", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("chmod temp file: %w", err)
	}
	return tmpName, nil
}
