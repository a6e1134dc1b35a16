package box

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"
)

// LocalDir provides thread-safe filesystem operations on the local half
// of a sync pair. All writes are serialized by an exclusive lock; reads
// take a shared lock so they never observe partial writes. The scanner,
// the sync executor, and the watcher all go through this type.
type LocalDir struct {
	dir string
	mu  sync.RWMutex
}

// NewLocalDir creates a LocalDir rooted at dir, which must exist and be
// a directory. The path is resolved to absolute form so relative paths
// can be safely joined against it.
func NewLocalDir(dir string) (*LocalDir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving local dir: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("checking local dir: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("local path %s is not a directory", abs)
	}

	return &LocalDir{dir: abs}, nil
}

// Dir returns the absolute root directory.
func (d *LocalDir) Dir() string {
	return d.dir
}

// ReadFile reads a file by relative path.
func (d *LocalDir) ReadFile(relPath string) ([]byte, error) {
	absPath, err := d.resolve(relPath)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	return os.ReadFile(absPath)
}

// WriteFile writes content to a file by relative path, creating parent
// directories as needed. A non-zero mtime is applied after writing so
// downloaded files keep the remote modification time.
func (d *LocalDir) WriteFile(relPath string, data []byte, mtime time.Time) error {
	absPath, err := d.resolve(relPath)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", relPath, err)
	}

	if err := os.WriteFile(absPath, data, 0o644); err != nil {
		return err
	}

	if !mtime.IsZero() {
		if err := os.Chtimes(absPath, mtime, mtime); err != nil {
			return fmt.Errorf("setting mtime for %s: %w", relPath, err)
		}
	}

	return nil
}

// WriteFileFrom streams content into a file by relative path, going
// through a temporary file in the same directory and renaming it into
// place. Readers never observe a half-written file, and a failed stream
// leaves the previous content untouched. The temporary file is removed
// on any failure.
func (d *LocalDir) WriteFileFrom(relPath string, content io.Reader, mtime time.Time) error {
	absPath, err := d.resolve(relPath)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", relPath, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(absPath)+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", relPath, err)
	}

	renamed := false
	defer func() {
		tmp.Close()
		if !renamed {
			os.Remove(tmp.Name())
		}
	}()

	if _, err := io.Copy(tmp, content); err != nil {
		return fmt.Errorf("writing %s: %w", relPath, err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file for %s: %w", relPath, err)
	}

	if !mtime.IsZero() {
		if err := os.Chtimes(tmp.Name(), mtime, mtime); err != nil {
			return fmt.Errorf("setting mtime for %s: %w", relPath, err)
		}
	}

	if err := os.Rename(tmp.Name(), absPath); err != nil {
		return fmt.Errorf("replacing %s: %w", relPath, err)
	}

	renamed = true

	return nil
}

// Remove deletes a file by relative path. Returns nil if the file does
// not exist.
func (d *LocalDir) Remove(relPath string) error {
	absPath, err := d.resolve(relPath)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err = os.Remove(absPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", relPath, err)
	}

	return nil
}

// RemoveDir deletes a directory by relative path only if it is empty.
// Returns nil if it does not exist. Fails on non-empty directories:
// hidden files are invisible to the scanner, and silently destroying
// them on a folder delete would lose data the sync never tracked.
func (d *LocalDir) RemoveDir(relPath string) error {
	absPath, err := d.resolve(relPath)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	err = os.Remove(absPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing directory %s: %w", relPath, err)
	}

	return nil
}

// MkdirAll creates a directory (and parents) by relative path.
func (d *LocalDir) MkdirAll(relPath string) error {
	absPath, err := d.resolve(relPath)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	return os.MkdirAll(absPath, 0o755)
}

// Stat returns file info for a relative path.
func (d *LocalDir) Stat(relPath string) (os.FileInfo, error) {
	absPath, err := d.resolve(relPath)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	return os.Stat(absPath)
}

// HashFile computes the lowercase hex sha1 of a file's content by
// relative path. The content is streamed through the hash, so large
// files are never loaded whole. Box reports the same hash for every
// file, which is what makes content comparison possible without
// downloading.
func (d *LocalDir) HashFile(relPath string) (string, error) {
	absPath, err := d.resolve(relPath)
	if err != nil {
		return "", err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	f, err := os.Open(absPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", relPath, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// resolve converts a relative path to an absolute path within the root
// directory, rejecting path traversal attempts. Remote listings name the
// paths the executor writes to, so a hostile folder name must not be
// able to escape the root.
func (d *LocalDir) resolve(relPath string) (string, error) {
	if relPath == "" {
		return "", fmt.Errorf("empty path")
	}

	absPath := filepath.Join(d.dir, filepath.FromSlash(relPath))
	if !strings.HasPrefix(absPath, d.dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path traversal blocked: %q resolves outside local dir", relPath)
	}

	return absPath, nil
}

// normalizePath normalizes a relative sync path: non-breaking spaces
// become regular spaces, repeated slashes collapse, leading and trailing
// slashes are trimmed, and the result is Unicode NFC. Both listers apply
// this, so a file named on macOS (NFD) still joins against its remote
// counterpart.
func normalizePath(path string) string {
	path = strings.ReplaceAll(path, " ", " ")
	path = strings.ReplaceAll(path, " ", " ")

	// Collapse multiple slashes and trim leading/trailing.
	var b strings.Builder

	prevSlash := false
	for _, r := range path {
		if r == '/' {
			if prevSlash {
				continue
			}

			prevSlash = true
		} else {
			prevSlash = false
		}

		b.WriteRune(r)
	}

	path = strings.Trim(b.String(), "/")

	return norm.NFC.String(path)
}
