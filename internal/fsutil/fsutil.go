// Package fsutil holds the small filesystem primitives the store builds on:
// atomic whole-file replacement and plain file copies for backups.
package fsutil

import (
	"fmt"
	"os"
)

// TmpSuffix is appended to the target path for the transient write file.
const TmpSuffix = ".tmp"

// WriteAtomic replaces the file at path with data. The bytes are written to a
// sibling temp file, synced, then renamed over the target, so a concurrent
// reader observes either the old content or the new content, never a prefix.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	tmp := path + TmpSuffix
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("fsutil: open temp: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsutil: write temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("fsutil: sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fsutil: close temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("fsutil: rename: %w", err)
	}
	return nil
}

// CopyFile copies src to dst (atomically, via WriteAtomic) and reports
// whether a copy happened. A missing src is not an error: there is nothing to
// copy, so dst is left alone.
func CopyFile(src, dst string, perm os.FileMode) (bool, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("fsutil: read %s: %w", src, err)
	}
	if err := WriteAtomic(dst, data, perm); err != nil {
		return false, err
	}
	return true, nil
}
