// Package archive builds bulk ZIP archives of generated messages and keeps
// the downloads directory from growing without bound.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrLimitExceeded marks a bulk request that violates one of the configured
// size limits. The wrapping message names the specific limit.
var ErrLimitExceeded = errors.New("zip limit exceeded")

// Limits bound a single bulk archive request.
type Limits struct {
	MaxFiles      int
	MaxFileBytes  int64
	MaxTotalBytes int64
}

// Entry is one file to include in an archive.
type Entry struct {
	Name string // name inside the archive
	Path string // location on disk
}

// Archiver creates ZIP archives in the downloads directory.
type Archiver struct {
	Dir    string
	Limits Limits
}

// New constructs an Archiver.
func New(dir string, limits Limits) *Archiver {
	return &Archiver{Dir: dir, Limits: limits}
}

// Create writes a ZIP with the given entries and returns its path. Limits are
// checked up front so an oversized request fails before any bytes move.
func (a *Archiver) Create(name string, entries []Entry) (string, error) {
	if a.Limits.MaxFiles > 0 && len(entries) > a.Limits.MaxFiles {
		return "", fmt.Errorf("%w: %d files requested (max %d)", ErrLimitExceeded, len(entries), a.Limits.MaxFiles)
	}
	var total int64
	for _, e := range entries {
		info, err := os.Stat(e.Path)
		if err != nil {
			return "", fmt.Errorf("stat %s: %w", e.Name, err)
		}
		if a.Limits.MaxFileBytes > 0 && info.Size() > a.Limits.MaxFileBytes {
			return "", fmt.Errorf("%w: %s is %d bytes (max %d)", ErrLimitExceeded, e.Name, info.Size(), a.Limits.MaxFileBytes)
		}
		total += info.Size()
	}
	if a.Limits.MaxTotalBytes > 0 && total > a.Limits.MaxTotalBytes {
		return "", fmt.Errorf("%w: %d bytes total (max %d)", ErrLimitExceeded, total, a.Limits.MaxTotalBytes)
	}

	if err := os.MkdirAll(a.Dir, 0o750); err != nil {
		return "", fmt.Errorf("create downloads dir: %w", err)
	}
	path := filepath.Join(a.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, e := range entries {
		if err := addEntry(zw, e); err != nil {
			zw.Close()
			os.Remove(path)
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("finalize archive: %w", err)
	}
	return path, nil
}

func addEntry(zw *zip.Writer, e Entry) error {
	src, err := os.Open(e.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", e.Name, err)
	}
	defer src.Close()
	w, err := zw.Create(e.Name)
	if err != nil {
		return fmt.Errorf("add %s: %w", e.Name, err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("copy %s: %w", e.Name, err)
	}
	return nil
}

// CleanupOld removes archives older than maxAge. Failures on individual files
// are skipped; housekeeping is best-effort.
func (a *Archiver) CleanupOld(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	items, err := os.ReadDir(a.Dir)
	if err != nil {
		return
	}
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(a.Dir, item.Name()))
		}
	}
}
