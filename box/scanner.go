package box

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// ListLocalTree walks the local directory and returns one entry per
// file and folder, sorted by path. Hidden files and directories are
// skipped at any depth, as are symlinks, special files, and any path
// matching an exclude pattern. Every other failure aborts the whole
// listing with a LocalListError: a file that failed to stat or hash
// must not be mistaken for a deleted one.
func ListLocalTree(dir *LocalDir, excludes []string, logger *slog.Logger) ([]LocalEntry, error) {
	var entries []LocalEntry

	root := dir.Dir()

	err := filepath.WalkDir(root, func(absPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, absPath)
		if err != nil {
			return err
		}

		// Skip the root directory itself.
		if relPath == "." {
			return nil
		}

		relPath = normalizePath(filepath.ToSlash(relPath))

		// Skip hidden files/dirs at any level (like .git).
		base := filepath.Base(absPath)
		if strings.HasPrefix(base, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if excluded(relPath, base, excludes) {
			logger.Debug("skipping excluded path", slog.String("path", relPath))
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		// Skip symlinks to prevent following links to files outside the
		// directory or to special files (devices, FIFOs) that could hang
		// or produce unexpected data.
		if d.Type()&os.ModeSymlink != 0 {
			logger.Debug("skipping symlink during scan", slog.String("path", relPath))
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", relPath, err)
		}

		if d.IsDir() {
			entries = append(entries, LocalEntry{
				Path:    relPath,
				Kind:    KindFolder,
				ModTime: info.ModTime(),
			})

			return nil
		}

		if !d.Type().IsRegular() {
			logger.Debug("skipping special file during scan", slog.String("path", relPath))
			return nil
		}

		hash, err := dir.HashFile(relPath)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", relPath, err)
		}

		entries = append(entries, LocalEntry{
			Path:    relPath,
			Kind:    KindFile,
			ModTime: info.ModTime(),
			SHA1:    hash,
			Size:    info.Size(),
		})

		return nil
	})
	if err != nil {
		return nil, &LocalListError{Path: root, Err: err}
	}

	slices.SortFunc(entries, func(a, b LocalEntry) int {
		return strings.Compare(a.Path, b.Path)
	})

	logger.Debug("local scan complete",
		slog.String("dir", root),
		slog.Int("entries", len(entries)),
	)

	return entries, nil
}

// excluded reports whether a relative path matches any exclude pattern.
// Patterns match against both the full relative path and the base name,
// so "*.tmp" excludes temp files at any depth.
func excluded(relPath, base string, excludes []string) bool {
	for _, pattern := range excludes {
		if ok, err := path.Match(pattern, relPath); err == nil && ok {
			return true
		}

		if ok, err := path.Match(pattern, base); err == nil && ok {
			return true
		}
	}

	return false
}
