package box

import (
	"slices"
	"strings"
	"time"

	"github.com/boxsync/boxsync/internal/baseline"
)

// mtimeSkew is the maximum clock difference tolerated when comparing
// modification times without a baseline. Box stores times at second
// resolution and the local clock may drift, so orderings inside this
// window are treated as meaningless.
const mtimeSkew = 2 * time.Second

// Classification is the outcome of comparing one path across the local
// tree, the remote tree, and the baseline from the last sync.
type Classification int

const (
	// Unchanged means both sides agree; no work in either direction.
	Unchanged Classification = iota

	// AddedLocally means the path exists only locally and was not seen
	// at the last sync.
	AddedLocally

	// AddedRemotely means the path exists only remotely and was not
	// seen at the last sync.
	AddedRemotely

	// ModifiedLocally means both sides have the file but only the local
	// side changed since the last sync.
	ModifiedLocally

	// ModifiedRemotely means both sides have the file but only the
	// remote side changed since the last sync.
	ModifiedRemotely

	// DeletedLocally means the path was present at the last sync and
	// still exists remotely, but is gone from the local tree.
	DeletedLocally

	// DeletedRemotely means the path was present at the last sync and
	// still exists locally, but is gone from the remote tree.
	DeletedRemotely

	// Conflicted means the two sides disagree in a way that cannot be
	// attributed to one side: both changed since the baseline, the types
	// differ, or there is no baseline and the timestamps are too close
	// to call. Conflicts are never resolved automatically.
	Conflicted
)

var classificationNames = map[Classification]string{
	Unchanged:        "unchanged",
	AddedLocally:     "added-locally",
	AddedRemotely:    "added-remotely",
	ModifiedLocally:  "modified-locally",
	ModifiedRemotely: "modified-remotely",
	DeletedLocally:   "deleted-locally",
	DeletedRemotely:  "deleted-remotely",
	Conflicted:       "conflicted",
}

func (c Classification) String() string {
	if name, ok := classificationNames[c]; ok {
		return name
	}

	return "unknown"
}

// DiffEntry is the classification of one path, along with whatever
// metadata each side had for it. Local, Remote, and Base are nil for
// sides where the path does not exist.
type DiffEntry struct {
	Path   string
	Kind   EntryKind
	Class  Classification
	Local  *LocalEntry
	Remote *RemoteEntry
	Base   *baseline.Entry
}

// Diff classifies every path present in either tree. It is a pure
// function over the three inputs: no I/O happens here, so a plan built
// from the result can be inspected before anything runs. The result is
// sorted by path.
//
// base holds per-path state recorded after the last successful transfer
// of each file. When a path has no baseline entry, content changes are
// attributed by modification time instead, and orderings within the
// clock-skew window come back Conflicted rather than guessed.
func Diff(local []LocalEntry, remote []RemoteEntry, base map[string]baseline.Entry) []DiffEntry {
	localByPath := make(map[string]LocalEntry, len(local))
	for _, entry := range local {
		localByPath[entry.Path] = entry
	}

	remoteByPath := make(map[string]RemoteEntry, len(remote))
	for _, entry := range remote {
		remoteByPath[entry.Path] = entry
	}

	paths := make([]string, 0, len(localByPath))
	for path := range localByPath {
		paths = append(paths, path)
	}

	for path := range remoteByPath {
		if _, ok := localByPath[path]; !ok {
			paths = append(paths, path)
		}
	}

	slices.SortFunc(paths, strings.Compare)

	entries := make([]DiffEntry, 0, len(paths))

	for _, path := range paths {
		entry := DiffEntry{Path: path}

		if b, ok := base[path]; ok {
			entry.Base = &b
		}

		l, hasLocal := localByPath[path]
		r, hasRemote := remoteByPath[path]

		if hasLocal {
			entry.Local = &l
		}

		if hasRemote {
			entry.Remote = &r
		}

		switch {
		case hasLocal && hasRemote:
			entry.Kind = l.Kind
			entry.Class = classifyBoth(&l, &r, entry.Base)
		case hasLocal:
			entry.Kind = l.Kind
			entry.Class = classifyOneSided(entry.Base, DeletedRemotely, AddedLocally)
		default:
			entry.Kind = r.Kind
			entry.Class = classifyOneSided(entry.Base, DeletedLocally, AddedRemotely)
		}

		entries = append(entries, entry)
	}

	return entries
}

// classifyBoth decides a path that exists on both sides.
func classifyBoth(l *LocalEntry, r *RemoteEntry, b *baseline.Entry) Classification {
	// Step 1: type mismatch (file vs folder) is never auto-resolved.
	if l.Kind != r.Kind {
		return Conflicted
	}

	// Step 2: folders carry no content. Presence on both sides is
	// agreement.
	if l.Kind == KindFolder {
		return Unchanged
	}

	// Step 3: identical content.
	if l.SHA1 != "" && l.SHA1 == r.SHA1 {
		return Unchanged
	}

	// Step 4: three-way comparison against the baseline. A side whose
	// hash still matches the baseline has not moved since the last sync,
	// so the change belongs to the other side.
	if b != nil && !b.Folder && b.SHA1 != "" {
		localMoved := l.SHA1 != b.SHA1
		remoteMoved := r.SHA1 != b.SHA1

		switch {
		case localMoved && remoteMoved:
			return Conflicted
		case localMoved:
			return ModifiedLocally
		case remoteMoved:
			return ModifiedRemotely
		default:
			return Unchanged
		}
	}

	// Step 5: no baseline. Fall back to modification times, tolerating
	// clock skew between the local machine and the service. Inside the
	// window the ordering is meaningless, and guessing wrong overwrites
	// someone's edits.
	delta := l.ModTime.Sub(r.ModTime)

	switch {
	case delta > mtimeSkew:
		return ModifiedLocally
	case delta < -mtimeSkew:
		return ModifiedRemotely
	default:
		return Conflicted
	}
}

// classifyOneSided decides a path that exists on a single side. The
// baseline disambiguates between an addition on the present side and a
// deletion on the missing side.
func classifyOneSided(b *baseline.Entry, whenTracked, whenNew Classification) Classification {
	if b != nil {
		return whenTracked
	}

	return whenNew
}
