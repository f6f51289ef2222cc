// Package fsatomic provides crash-safe file writes for the filesystem state
// BioVault's core treats as its database: settings, profiles, vault
// messages, and session metadata. Every multi-step write in the core goes
// through here so a reader never observes a half-written file.
package fsatomic

import (
	"os"
	"path/filepath"
)

// WriteFile writes data to path by first writing to a temp file in the same
// directory, then renaming it over path. The rename is atomic on the same
// filesystem, so a concurrent reader sees either the old content or the new
// content, never a partial write.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// EnsureDir creates dir (and parents) if missing and drops a .syftkeep
// marker inside it so the sync layer retains otherwise-empty directories.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	keep := filepath.Join(dir, ".syftkeep")
	if _, err := os.Stat(keep); os.IsNotExist(err) {
		f, err := os.Create(keep)
		if err != nil {
			return err
		}
		return f.Close()
	}
	return nil
}
