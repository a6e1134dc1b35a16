package box

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// pollInterval is how often the watcher checks whether a pending
	// burst of events has settled.
	pollInterval = 500 * time.Millisecond

	// settleDelay is how long the directory must stay quiet before a
	// burst of changes is pushed as one run.
	settleDelay = 2 * time.Second
)

// syncRunner is the subset of Syncer the watcher needs. Extracted for
// testability.
type syncRunner interface {
	Push(ctx context.Context, folderID string, opts PlanOptions) (*SyncResult, error)
}

// Watcher monitors the local directory and pushes changes to the remote
// folder. Events are debounced: a burst of writes becomes a single push
// run once the directory has been quiet for a moment.
type Watcher struct {
	runner   syncRunner
	dir      *LocalDir
	folderID string
	opts     PlanOptions
	exclude  []string
	logger   *slog.Logger
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher that pushes the syncer's local directory
// to remote folderID whenever it changes.
func NewWatcher(syncer *Syncer, folderID string, opts PlanOptions) *Watcher {
	return &Watcher{
		runner:   syncer,
		dir:      syncer.dir,
		folderID: folderID,
		opts:     opts,
		exclude:  syncer.exclude,
		logger:   syncer.logger,
	}
}

// Watch blocks watching the directory until the context is cancelled.
// Directories are watched recursively, including ones created while
// watching.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	w.watcher = watcher
	defer watcher.Close()

	if err := w.addRecursive(w.dir.Dir()); err != nil {
		return fmt.Errorf("watching sync dir: %w", err)
	}

	w.logger.Info("file watcher started",
		slog.String("dir", w.dir.Dir()),
		slog.String("folder_id", w.folderID),
	)

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed unexpectedly")
			}
			if w.shouldIgnore(event.Name) {
				continue
			}

			pending[event.Name] = time.Now()

			// A new directory needs its own watch before events inside
			// it can be seen.
			if event.Has(fsnotify.Create) {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					_ = w.addRecursive(event.Name)
				}
			}

			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				// On Linux inotify drops deleted watches itself, but
				// other platforms may leak them.
				_ = watcher.Remove(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed unexpectedly")
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))

		case <-ticker.C:
			if !quiesced(pending, time.Now()) {
				continue
			}

			clear(pending)
			w.runSync(ctx)
		}
	}
}

// quiesced reports whether a burst of changes has settled: at least one
// event is waiting and none arrived within the settle window.
func quiesced(pending map[string]time.Time, now time.Time) bool {
	if len(pending) == 0 {
		return false
	}

	for _, t := range pending {
		if now.Sub(t) < settleDelay {
			return false
		}
	}

	return true
}

// runSync performs one push run. Failures are logged, never fatal: the
// next burst of changes retries naturally.
func (w *Watcher) runSync(ctx context.Context) {
	result, err := w.runner.Push(ctx, w.folderID, w.opts)
	if err != nil {
		w.logger.Warn("watch push failed", slog.String("error", err.Error()))
		return
	}

	applied, skipped, failedCount := result.Counts()
	w.logger.Info("watch push complete",
		slog.String("run_id", result.RunID),
		slog.Int("applied", applied),
		slog.Int("skipped", skipped),
		slog.Int("failed", failedCount),
	)
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && w.shouldIgnore(path) {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

// shouldIgnore filters events the sync would skip anyway: hidden files,
// editor temp files, and excluded patterns. Filtering here avoids push
// runs triggered by files no run would transfer.
func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return true
	}

	rel, err := filepath.Rel(w.dir.Dir(), path)
	if err != nil {
		return false
	}

	return excluded(normalizePath(filepath.ToSlash(rel)), base, w.exclude)
}
