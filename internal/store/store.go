// Package store reads and replaces documents on disk.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// BackupLayout is the timestamp format embedded in backup file names.
const BackupLayout = "20060102_150405"

// Read returns the document at path.
func Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteAtomic replaces path with data through a temporary file in the same
// directory, so readers see either the old or the new document. The mode of an
// existing file is kept; perm applies to new files.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".litpatch-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	_ = os.Chmod(tmpPath, perm)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// BackupName returns "<base>_backup_<YYYYMMDD_HHMMSS><ext>" for path.
func BackupName(path string, now time.Time) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_backup_%s%s", stem, now.Format(BackupLayout), ext)
}

// Backup copies path into dir (the document's own directory when dir is empty)
// and returns the backup's path.
func Backup(path, dir string, now time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = filepath.Dir(path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, BackupName(path, now))
	if err := WriteAtomic(dst, data, 0o644); err != nil {
		return "", err
	}
	return dst, nil
}

// Glob expands each pattern (with ** support) and returns the matched files
// sorted and de-duplicated. A pattern without meta characters is returned as is
// so that a missing file surfaces as a read error later.
func Glob(patterns []string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string
	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, pat := range patterns {
		if !hasMeta(pat) {
			add(pat)
			continue
		}
		if !doublestar.ValidatePattern(filepath.ToSlash(pat)) {
			return nil, fmt.Errorf("invalid pattern %q", pat)
		}
		matches, err := doublestar.FilepathGlob(pat, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pat, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func hasMeta(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
