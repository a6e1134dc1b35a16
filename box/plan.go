package box

import (
	"path"
	"slices"
	"strings"
	"time"
)

// Direction selects which side of a sync pair is the source of truth.
type Direction int

const (
	// Push treats the local directory as the source: local changes flow
	// up to the remote folder.
	Push Direction = iota

	// Fetch treats the remote folder as the source: remote changes flow
	// down into the local directory.
	Fetch
)

func (d Direction) String() string {
	if d == Fetch {
		return "fetch"
	}

	return "push"
}

// ActionKind identifies the operation an Action performs.
type ActionKind int

const (
	// ActionUpload creates a new remote file from local content.
	ActionUpload ActionKind = iota

	// ActionUploadVersion replaces an existing remote file's content.
	// The service keeps the previous content as a file version.
	ActionUploadVersion

	// ActionCreateRemoteFolder creates a folder on the remote side.
	ActionCreateRemoteFolder

	// ActionDeleteRemoteFile trashes a remote file.
	ActionDeleteRemoteFile

	// ActionDeleteRemoteFolder trashes an empty remote folder.
	ActionDeleteRemoteFolder

	// ActionDownload writes remote file content into the local tree.
	ActionDownload

	// ActionMakeLocalDir creates a local directory.
	ActionMakeLocalDir

	// ActionDeleteLocalFile removes a local file.
	ActionDeleteLocalFile

	// ActionDeleteLocalDir removes an empty local directory.
	ActionDeleteLocalDir
)

var actionNames = map[ActionKind]string{
	ActionUpload:             "upload",
	ActionUploadVersion:      "upload-version",
	ActionCreateRemoteFolder: "create-remote-folder",
	ActionDeleteRemoteFile:   "delete-remote-file",
	ActionDeleteRemoteFolder: "delete-remote-folder",
	ActionDownload:           "download",
	ActionMakeLocalDir:       "make-local-dir",
	ActionDeleteLocalFile:    "delete-local-file",
	ActionDeleteLocalDir:     "delete-local-dir",
}

func (k ActionKind) String() string {
	if name, ok := actionNames[k]; ok {
		return name
	}

	return "unknown"
}

// Skip reasons attached to plan entries that deliberately do nothing.
const (
	ReasonUnchanged         = "unchanged"
	ReasonOverwriteDisabled = "overwrite disabled"
	ReasonDeleteDisabled    = "delete disabled"
	ReasonConflict          = "conflict"
)

// Action is one unit of work in a sync plan. Every action names exactly
// one path, and no two actions in a plan share a path, which is what
// makes concurrent execution safe.
type Action struct {
	Kind ActionKind
	Path string

	// Class is the diff classification that produced this action.
	Class Classification

	// ItemID is the remote id for version uploads, downloads, and
	// remote deletes. Empty for actions that create something new.
	ItemID string

	// ParentPath is the remote parent folder path for uploads and
	// remote folder creates. Empty means the sync root.
	ParentPath string

	// Name is the base name of the item being created remotely.
	Name string

	// Size is the content size of the transferred file, for progress
	// accounting. Zero for folders and deletes.
	Size int64

	// ModTime is the source side's modification time, preserved on the
	// target after the transfer.
	ModTime time.Time
}

// Skip records one path the plan intentionally leaves alone and why.
type Skip struct {
	Path   string
	Class  Classification
	Reason string
}

// PlanOptions control how much a plan is allowed to change the target
// side. Both default to off: a plain sync only ever adds.
type PlanOptions struct {
	// Overwrite allows modified files to be replaced on the target side.
	Overwrite bool

	// Delete allows items missing from the source side to be removed
	// from the target side.
	Delete bool
}

// SyncPlan is the complete, ordered set of work for one sync run. Plans
// are built entirely up front from a Diff, so they can be logged or
// shown to the user before any transfer starts.
type SyncPlan struct {
	Direction Direction

	// FolderCreates run first, parents before children, so transfer
	// targets always exist.
	FolderCreates []Action

	// Transfers run after folders exist. Safe to run concurrently: each
	// action touches a distinct path.
	Transfers []Action

	// Deletes run last, deepest path first, files before folders, so a
	// folder is only removed once its planned contents are gone.
	Deletes []Action

	// Skips document every path the plan deliberately leaves alone.
	Skips []Skip

	// RemoteFolders maps remote folder paths that already exist to their
	// ids, letting the executor resolve upload parents without another
	// listing. The sync root is the empty path.
	RemoteFolders map[string]string
}

// ActionCount returns the number of actions across all phases.
func (p *SyncPlan) ActionCount() int {
	return len(p.FolderCreates) + len(p.Transfers) + len(p.Deletes)
}

// TransferBytes returns the total content size moved by the plan.
func (p *SyncPlan) TransferBytes() int64 {
	var total int64
	for _, a := range p.Transfers {
		total += a.Size
	}

	return total
}

// IsEmpty reports whether the plan performs no actions. A plan can be
// empty and still carry skips.
func (p *SyncPlan) IsEmpty() bool {
	return p.ActionCount() == 0
}

// BuildPlan maps classified diff entries onto concrete actions for one
// sync direction. Like Diff, it performs no I/O.
//
// Conflicted entries are always skipped: the engine never picks a winner.
// Modified entries transfer only when opts.Overwrite is set, and
// one-sided entries whose source is the missing side delete only when
// opts.Delete is set.
func BuildPlan(direction Direction, entries []DiffEntry, opts PlanOptions) *SyncPlan {
	plan := &SyncPlan{
		Direction:     direction,
		RemoteFolders: make(map[string]string),
	}

	for _, e := range entries {
		if e.Remote != nil && e.Remote.Kind == KindFolder {
			plan.RemoteFolders[e.Path] = e.Remote.ID
		}
	}

	for _, e := range entries {
		if direction == Push {
			planPush(plan, e, opts)
		} else {
			planFetch(plan, e, opts)
		}
	}

	// Parents are strict prefixes of their children, so path length
	// gives a valid creation and deletion order.
	slices.SortStableFunc(plan.FolderCreates, func(a, b Action) int {
		if d := len(a.Path) - len(b.Path); d != 0 {
			return d
		}

		return strings.Compare(a.Path, b.Path)
	})

	slices.SortStableFunc(plan.Deletes, func(a, b Action) int {
		if d := len(b.Path) - len(a.Path); d != 0 {
			return d
		}

		return strings.Compare(a.Path, b.Path)
	})

	return plan
}

// planPush decides the push action for one classified entry. Local is
// the source of truth: everything local gets to the remote, and remote
// items missing locally are deleted only when allowed.
func planPush(plan *SyncPlan, e DiffEntry, opts PlanOptions) {
	switch e.Class {
	case Unchanged:
		plan.skip(e, ReasonUnchanged)

	case AddedLocally, DeletedRemotely:
		// Either a new local item, or one the remote side lost. Both
		// mean the remote needs a copy.
		if e.Kind == KindFolder {
			plan.FolderCreates = append(plan.FolderCreates, Action{
				Kind:       ActionCreateRemoteFolder,
				Path:       e.Path,
				Class:      e.Class,
				ParentPath: parentPath(e.Path),
				Name:       path.Base(e.Path),
			})

			return
		}

		plan.Transfers = append(plan.Transfers, Action{
			Kind:       ActionUpload,
			Path:       e.Path,
			Class:      e.Class,
			ParentPath: parentPath(e.Path),
			Name:       path.Base(e.Path),
			Size:       e.Local.Size,
			ModTime:    e.Local.ModTime,
		})

	case ModifiedLocally, ModifiedRemotely:
		if !opts.Overwrite {
			plan.skip(e, ReasonOverwriteDisabled)
			return
		}

		plan.Transfers = append(plan.Transfers, Action{
			Kind:    ActionUploadVersion,
			Path:    e.Path,
			Class:   e.Class,
			ItemID:  e.Remote.ID,
			Name:    path.Base(e.Path),
			Size:    e.Local.Size,
			ModTime: e.Local.ModTime,
		})

	case AddedRemotely, DeletedLocally:
		if !opts.Delete {
			plan.skip(e, ReasonDeleteDisabled)
			return
		}

		kind := ActionDeleteRemoteFile
		if e.Kind == KindFolder {
			kind = ActionDeleteRemoteFolder
		}

		plan.Deletes = append(plan.Deletes, Action{
			Kind:   kind,
			Path:   e.Path,
			Class:  e.Class,
			ItemID: e.Remote.ID,
		})

	case Conflicted:
		plan.skip(e, ReasonConflict)
	}
}

// planFetch decides the fetch action for one classified entry. It is
// the mirror image of planPush with remote as the source of truth.
func planFetch(plan *SyncPlan, e DiffEntry, opts PlanOptions) {
	switch e.Class {
	case Unchanged:
		plan.skip(e, ReasonUnchanged)

	case AddedRemotely, DeletedLocally:
		if e.Kind == KindFolder {
			plan.FolderCreates = append(plan.FolderCreates, Action{
				Kind:  ActionMakeLocalDir,
				Path:  e.Path,
				Class: e.Class,
			})

			return
		}

		plan.Transfers = append(plan.Transfers, Action{
			Kind:    ActionDownload,
			Path:    e.Path,
			Class:   e.Class,
			ItemID:  e.Remote.ID,
			Size:    e.Remote.Size,
			ModTime: e.Remote.ModTime,
		})

	case ModifiedRemotely, ModifiedLocally:
		if !opts.Overwrite {
			plan.skip(e, ReasonOverwriteDisabled)
			return
		}

		plan.Transfers = append(plan.Transfers, Action{
			Kind:    ActionDownload,
			Path:    e.Path,
			Class:   e.Class,
			ItemID:  e.Remote.ID,
			Size:    e.Remote.Size,
			ModTime: e.Remote.ModTime,
		})

	case AddedLocally, DeletedRemotely:
		if !opts.Delete {
			plan.skip(e, ReasonDeleteDisabled)
			return
		}

		kind := ActionDeleteLocalFile
		if e.Kind == KindFolder {
			kind = ActionDeleteLocalDir
		}

		plan.Deletes = append(plan.Deletes, Action{
			Kind:  kind,
			Path:  e.Path,
			Class: e.Class,
		})

	case Conflicted:
		plan.skip(e, ReasonConflict)
	}
}

func (p *SyncPlan) skip(e DiffEntry, reason string) {
	p.Skips = append(p.Skips, Skip{Path: e.Path, Class: e.Class, Reason: reason})
}

// parentPath returns the slash-separated parent of a relative path, with
// the sync root as the empty string.
func parentPath(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}

	return dir
}
