package box

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/boxsync/boxsync/internal/baseline"
)

// defaultWorkers is the transfer concurrency when none is configured.
const defaultWorkers = 4

// Remote is the remote-side surface the sync engine needs. *Client
// implements it against the live API; tests substitute a mock.
type Remote interface {
	ListTree(ctx context.Context, folderID string) ([]RemoteEntry, error)
	CreateFolder(ctx context.Context, parentID, name string) (*Folder, error)
	UploadFile(ctx context.Context, parentID, name string, content io.Reader, modTime time.Time) (*File, error)
	UploadVersion(ctx context.Context, fileID, name string, content io.Reader, modTime time.Time) (*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
	DeleteFile(ctx context.Context, fileID string) error
	DeleteFolder(ctx context.Context, folderID string, recursive bool) error
}

// Syncer reconciles a local directory with a remote folder in either
// direction. It holds no per-run state, so one Syncer can serve many
// runs against different remote folders.
type Syncer struct {
	remote   Remote
	dir      *LocalDir
	store    *baseline.Store
	logger   *slog.Logger
	workers  int
	exclude  []string
	progress func(Outcome)
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SyncerOption {
	return func(s *Syncer) { s.logger = logger }
}

// WithBaseline attaches a baseline store. With a baseline the diff can
// tell which side of a divergent file changed; without one it falls
// back to timestamp comparison and reports close calls as conflicts.
func WithBaseline(store *baseline.Store) SyncerOption {
	return func(s *Syncer) { s.store = store }
}

// WithWorkers caps concurrent transfers. Values below 1 are ignored.
func WithWorkers(n int) SyncerOption {
	return func(s *Syncer) {
		if n >= 1 {
			s.workers = n
		}
	}
}

// WithExclude adds glob patterns for local paths the sync ignores.
func WithExclude(patterns []string) SyncerOption {
	return func(s *Syncer) { s.exclude = patterns }
}

// WithProgress registers a callback invoked once per completed action
// (applied or failed), from whichever goroutine finished it. Used by
// the CLI to drive a progress bar.
func WithProgress(fn func(Outcome)) SyncerOption {
	return func(s *Syncer) { s.progress = fn }
}

// NewSyncer creates a sync engine over the given remote and local dir.
func NewSyncer(remote Remote, dir *LocalDir, opts ...SyncerOption) *Syncer {
	s := &Syncer{
		remote:  remote,
		dir:     dir,
		logger:  slog.Default(),
		workers: defaultWorkers,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Push reconciles remote folderID to match the local directory. Local
// is the source of truth: new local files upload, and remote-side
// changes are only overwritten or deleted when opts allow it.
//
// The returned result covers every diffed path. A non-nil error means
// the run could not start at all (authentication or listing failure);
// per-file failures are recorded in the result instead.
func (s *Syncer) Push(ctx context.Context, folderID string, opts PlanOptions) (*SyncResult, error) {
	return s.sync(ctx, Push, folderID, opts)
}

// Fetch reconciles the local directory to match remote folderID. It is
// the mirror image of Push with remote as the source of truth.
func (s *Syncer) Fetch(ctx context.Context, folderID string, opts PlanOptions) (*SyncResult, error) {
	return s.sync(ctx, Fetch, folderID, opts)
}

// Plan lists both trees and builds the plan a sync run would execute,
// without performing any action. Fatal listing errors are returned as
// is, so a dry run surfaces the same failures a real run would.
func (s *Syncer) Plan(ctx context.Context, direction Direction, folderID string, opts PlanOptions) (*SyncPlan, error) {
	entries, err := s.diff(ctx, folderID)
	if err != nil {
		return nil, err
	}

	return BuildPlan(direction, entries, opts), nil
}

func (s *Syncer) sync(ctx context.Context, direction Direction, folderID string, opts PlanOptions) (*SyncResult, error) {
	entries, err := s.diff(ctx, folderID)
	if err != nil {
		return nil, err
	}

	plan := BuildPlan(direction, entries, opts)

	s.logger.Info("sync plan built",
		slog.String("direction", direction.String()),
		slog.String("folder_id", folderID),
		slog.Int("folders", len(plan.FolderCreates)),
		slog.Int("transfers", len(plan.Transfers)),
		slog.Int("deletes", len(plan.Deletes)),
		slog.Int("skips", len(plan.Skips)),
	)

	result := s.execute(ctx, plan, folderID)

	if s.store != nil {
		if err := s.saveBaseline(folderID, entries, result); err != nil {
			// The baseline is advisory. Losing it degrades the next diff
			// to timestamp comparison, it does not corrupt anything.
			s.logger.Warn("saving sync baseline",
				slog.String("folder_id", folderID),
				slog.String("error", err.Error()),
			)
		}
	}

	applied, skipped, failed := result.Counts()
	s.logger.Info("sync complete",
		slog.String("run_id", result.RunID),
		slog.String("direction", direction.String()),
		slog.Int("applied", applied),
		slog.Int("skipped", skipped),
		slog.Int("failed", failed),
	)

	return result, nil
}

// diff lists both sides plus the baseline and classifies every path.
// Either listing failing aborts the run: a sync against a partial tree
// could misread unlisted files as deletions.
func (s *Syncer) diff(ctx context.Context, folderID string) ([]DiffEntry, error) {
	remote, err := s.remote.ListTree(ctx, folderID)
	if err != nil {
		return nil, err
	}

	local, err := ListLocalTree(s.dir, s.exclude, s.logger)
	if err != nil {
		return nil, err
	}

	var base map[string]baseline.Entry

	if s.store != nil {
		base, err = s.store.Load(s.dir.Dir(), folderID)
		if err != nil {
			s.logger.Warn("loading sync baseline, falling back to timestamps",
				slog.String("error", err.Error()),
			)

			base = nil
		}
	}

	return Diff(local, remote, base), nil
}

// execute runs a plan in three phases: folder creates sequentially
// (parents first), transfers concurrently up to the worker cap, then
// deletes sequentially (deepest first). A failed action is recorded in
// the result and never stops the other actions.
func (s *Syncer) execute(ctx context.Context, plan *SyncPlan, folderID string) *SyncResult {
	result := newSyncResult(plan.Direction)

	for _, skip := range plan.Skips {
		result.Outcomes[skip.Path] = Outcome{
			Path:   skip.Path,
			Class:  skip.Class,
			Status: StatusSkipped,
			Reason: skip.Reason,
		}
	}

	// folderIDs resolves remote parent paths to folder ids: the sync
	// root, folders that already existed, and folders created below.
	// Phase 1 is the only writer; phase 2 only reads.
	folderIDs := make(map[string]string, len(plan.RemoteFolders)+1)
	folderIDs[""] = folderID

	for path, id := range plan.RemoteFolders {
		folderIDs[path] = id
	}

	for _, action := range plan.FolderCreates {
		s.record(result, nil, s.applyFolderCreate(ctx, action, folderIDs))
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, action := range plan.Transfers {
		g.Go(func() error {
			// Failures are per-path outcomes, never group errors: one
			// broken transfer must not cancel its siblings.
			s.record(result, &mu, s.applyTransfer(gctx, action, folderIDs))

			return nil
		})
	}

	_ = g.Wait()

	for _, action := range plan.Deletes {
		s.record(result, nil, s.applyDelete(ctx, action))
	}

	result.Finished = time.Now()

	return result
}

// record stores an outcome (locking when called from transfer
// goroutines) and feeds the progress callback.
func (s *Syncer) record(result *SyncResult, mu *sync.Mutex, outcome Outcome) {
	if mu != nil {
		mu.Lock()
	}

	result.Outcomes[outcome.Path] = outcome

	if mu != nil {
		mu.Unlock()
	}

	if outcome.Status == StatusFailed {
		s.logger.Warn("sync action failed",
			slog.String("action", outcome.Action.String()),
			slog.String("path", outcome.Path),
			slog.String("error", outcome.Err.Error()),
		)
	} else {
		s.logger.Debug("sync action applied",
			slog.String("action", outcome.Action.String()),
			slog.String("path", outcome.Path),
		)
	}

	if s.progress != nil {
		s.progress(outcome)
	}
}

func (s *Syncer) applyFolderCreate(ctx context.Context, a Action, folderIDs map[string]string) Outcome {
	outcome := Outcome{Path: a.Path, Action: a.Kind, Class: a.Class}

	switch a.Kind {
	case ActionCreateRemoteFolder:
		parentID, ok := folderIDs[a.ParentPath]
		if !ok {
			return failed(outcome, &UploadError{Path: a.Path, Err: fmt.Errorf("parent folder %q was not created", a.ParentPath)})
		}

		folder, err := s.remote.CreateFolder(ctx, parentID, a.Name)
		if err != nil {
			return failed(outcome, &UploadError{Path: a.Path, Err: err})
		}

		folderIDs[a.Path] = folder.ID

	case ActionMakeLocalDir:
		if err := s.dir.MkdirAll(a.Path); err != nil {
			return failed(outcome, &DownloadError{Path: a.Path, Err: err})
		}
	}

	outcome.Status = StatusApplied

	return outcome
}

func (s *Syncer) applyTransfer(ctx context.Context, a Action, folderIDs map[string]string) Outcome {
	outcome := Outcome{Path: a.Path, Action: a.Kind, Class: a.Class}

	switch a.Kind {
	case ActionUpload:
		if err := s.uploadNew(ctx, a, folderIDs); err != nil {
			return failed(outcome, &UploadError{Path: a.Path, Err: err})
		}

	case ActionUploadVersion:
		if err := s.uploadVersion(ctx, a); err != nil {
			return failed(outcome, &UploadError{Path: a.Path, Err: err})
		}

	case ActionDownload:
		if err := s.download(ctx, a); err != nil {
			return failed(outcome, &DownloadError{Path: a.Path, Err: err})
		}
	}

	outcome.Status = StatusApplied

	return outcome
}

func (s *Syncer) applyDelete(ctx context.Context, a Action) Outcome {
	outcome := Outcome{Path: a.Path, Action: a.Kind, Class: a.Class}

	var err error

	switch a.Kind {
	case ActionDeleteRemoteFile:
		err = s.remote.DeleteFile(ctx, a.ItemID)
	case ActionDeleteRemoteFolder:
		// Non-recursive: the plan already deleted everything it tracks
		// under this folder, so anything left is content the lister
		// never saw and must not be silently destroyed.
		err = s.remote.DeleteFolder(ctx, a.ItemID, false)
	case ActionDeleteLocalFile:
		err = s.dir.Remove(a.Path)
	case ActionDeleteLocalDir:
		err = s.dir.RemoveDir(a.Path)
	}

	if err != nil {
		return failed(outcome, &DeleteError{Path: a.Path, Err: err})
	}

	outcome.Status = StatusApplied

	return outcome
}

func failed(outcome Outcome, err error) Outcome {
	outcome.Status = StatusFailed
	outcome.Err = err

	return outcome
}

func (s *Syncer) uploadNew(ctx context.Context, a Action, folderIDs map[string]string) error {
	parentID, ok := folderIDs[a.ParentPath]
	if !ok {
		return fmt.Errorf("parent folder %q was not created", a.ParentPath)
	}

	content, err := s.dir.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("reading local file: %w", err)
	}

	if _, err := s.remote.UploadFile(ctx, parentID, a.Name, bytes.NewReader(content), a.ModTime); err != nil {
		return err
	}

	return nil
}

func (s *Syncer) uploadVersion(ctx context.Context, a Action) error {
	content, err := s.dir.ReadFile(a.Path)
	if err != nil {
		return fmt.Errorf("reading local file: %w", err)
	}

	if _, err := s.remote.UploadVersion(ctx, a.ItemID, a.Name, bytes.NewReader(content), a.ModTime); err != nil {
		return err
	}

	return nil
}

// download streams remote content through a pipe into an atomic local
// write. The temp file disappears on any failure, and the final rename
// stamps the remote modification time first, so an interrupted download
// never leaves a half-written or wrongly-timed file behind.
func (s *Syncer) download(ctx context.Context, a Action) error {
	pr, pw := io.Pipe()
	defer pr.Close()

	go func() {
		pw.CloseWithError(s.remote.DownloadFile(ctx, a.ItemID, pw))
	}()

	return s.dir.WriteFileFrom(a.Path, pr, a.ModTime)
}

// saveBaseline records the post-run agreement for every path: unchanged
// entries and applied transfers get fresh records, applied deletes drop
// theirs, and everything else keeps whatever the last run recorded.
func (s *Syncer) saveBaseline(folderID string, entries []DiffEntry, result *SyncResult) error {
	next := make(map[string]baseline.Entry, len(entries))
	now := time.Now()

	for _, e := range entries {
		outcome, ok := result.Outcomes[e.Path]
		applied := ok && outcome.Status == StatusApplied

		switch {
		case e.Class == Unchanged:
			next[e.Path] = agreedEntry(e, result.Direction, now)
		case applied && isDelete(outcome.Action):
			// Gone from both sides now; no record to keep.
		case applied:
			next[e.Path] = agreedEntry(e, result.Direction, now)
		case e.Base != nil:
			next[e.Path] = *e.Base
		}
	}

	if err := s.store.Save(s.dir.Dir(), folderID, next); err != nil {
		return err
	}

	return s.store.SetMeta(s.dir.Dir(), folderID, baseline.Meta{
		RunID:     result.RunID,
		Direction: result.Direction.String(),
		Finished:  result.Finished,
	})
}

// agreedEntry builds the baseline record for a path both sides now
// agree on. The sync direction names the side that served as the
// source of truth for the run.
func agreedEntry(e DiffEntry, direction Direction, now time.Time) baseline.Entry {
	entry := baseline.Entry{
		Path:     e.Path,
		Folder:   e.Kind == KindFolder,
		SyncedAt: now,
	}

	if entry.Folder {
		return entry
	}

	switch {
	case direction == Push && e.Local != nil:
		entry.SHA1, entry.Size = e.Local.SHA1, e.Local.Size
	case e.Remote != nil:
		entry.SHA1, entry.Size = e.Remote.SHA1, e.Remote.Size
	case e.Local != nil:
		entry.SHA1, entry.Size = e.Local.SHA1, e.Local.Size
	}

	return entry
}

func isDelete(kind ActionKind) bool {
	switch kind {
	case ActionDeleteRemoteFile, ActionDeleteRemoteFolder, ActionDeleteLocalFile, ActionDeleteLocalDir:
		return true
	default:
		return false
	}
}
