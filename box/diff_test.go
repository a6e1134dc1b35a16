package box

import (
	"testing"
	"time"

	"github.com/boxsync/boxsync/internal/baseline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	syncTime   = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	earlier    = syncTime.Add(-time.Minute)
	later      = syncTime.Add(time.Minute)
	withinSkew = syncTime.Add(time.Second)
)

func localFileEntry(path, sha1 string, mtime time.Time) LocalEntry {
	return LocalEntry{Path: path, Kind: KindFile, SHA1: sha1, ModTime: mtime, Size: 10}
}

func localFolderEntry(path string) LocalEntry {
	return LocalEntry{Path: path, Kind: KindFolder, ModTime: syncTime}
}

func remoteFileEntry(path, id, sha1 string, mtime time.Time) RemoteEntry {
	return RemoteEntry{Path: path, ID: id, Kind: KindFile, SHA1: sha1, ModTime: mtime, Size: 10}
}

func remoteFolderEntry(path, id string) RemoteEntry {
	return RemoteEntry{Path: path, ID: id, Kind: KindFolder, ModTime: syncTime}
}

func baseFileEntry(path, sha1 string) baseline.Entry {
	return baseline.Entry{Path: path, SHA1: sha1, SyncedAt: syncTime}
}

func baseFolderEntry(path string) baseline.Entry {
	return baseline.Entry{Path: path, Folder: true, SyncedAt: syncTime}
}

func baseMap(entries ...baseline.Entry) map[string]baseline.Entry {
	m := make(map[string]baseline.Entry, len(entries))
	for _, e := range entries {
		m[e.Path] = e
	}

	return m
}

func TestDiff_Classification(t *testing.T) {
	tests := []struct {
		name   string
		local  []LocalEntry
		remote []RemoteEntry
		base   map[string]baseline.Entry
		want   Classification
	}{
		// --- presence on one side only ---
		{
			name:  "local only, no baseline -> added locally",
			local: []LocalEntry{localFileEntry("a.csv", "h1", syncTime)},
			want:  AddedLocally,
		},
		{
			name:  "local only, in baseline -> deleted remotely",
			local: []LocalEntry{localFileEntry("a.csv", "h1", syncTime)},
			base:  baseMap(baseFileEntry("a.csv", "h1")),
			want:  DeletedRemotely,
		},
		{
			name:   "remote only, no baseline -> added remotely",
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h1", syncTime)},
			want:   AddedRemotely,
		},
		{
			name:   "remote only, in baseline -> deleted locally",
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h1", syncTime)},
			base:   baseMap(baseFileEntry("a.csv", "h1")),
			want:   DeletedLocally,
		},
		{
			name:  "local folder only, in baseline -> deleted remotely",
			local: []LocalEntry{localFolderEntry("reports")},
			base:  baseMap(baseFolderEntry("reports")),
			want:  DeletedRemotely,
		},
		{
			name:   "remote folder only, no baseline -> added remotely",
			remote: []RemoteEntry{remoteFolderEntry("reports", "43")},
			want:   AddedRemotely,
		},

		// --- both sides present ---
		{
			name:   "both folders -> unchanged",
			local:  []LocalEntry{localFolderEntry("reports")},
			remote: []RemoteEntry{remoteFolderEntry("reports", "43")},
			want:   Unchanged,
		},
		{
			name:   "local file vs remote folder -> conflicted",
			local:  []LocalEntry{localFileEntry("reports", "h1", syncTime)},
			remote: []RemoteEntry{remoteFolderEntry("reports", "43")},
			want:   Conflicted,
		},
		{
			name:   "local folder vs remote file -> conflicted",
			local:  []LocalEntry{localFolderEntry("reports")},
			remote: []RemoteEntry{remoteFileEntry("reports", "7", "h1", syncTime)},
			want:   Conflicted,
		},
		{
			name:   "same hash -> unchanged",
			local:  []LocalEntry{localFileEntry("a.csv", "h1", later)},
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h1", earlier)},
			want:   Unchanged,
		},

		// --- hashes differ, baseline available ---
		{
			name:   "local matches baseline -> modified remotely",
			local:  []LocalEntry{localFileEntry("a.csv", "h1", syncTime)},
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h2", later)},
			base:   baseMap(baseFileEntry("a.csv", "h1")),
			want:   ModifiedRemotely,
		},
		{
			name:   "remote matches baseline -> modified locally",
			local:  []LocalEntry{localFileEntry("a.csv", "h2", later)},
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h1", syncTime)},
			base:   baseMap(baseFileEntry("a.csv", "h1")),
			want:   ModifiedLocally,
		},
		{
			name:   "both moved off baseline -> conflicted",
			local:  []LocalEntry{localFileEntry("a.csv", "h2", later)},
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h3", later)},
			base:   baseMap(baseFileEntry("a.csv", "h1")),
			want:   Conflicted,
		},

		// --- hashes differ, no baseline: mtime fallback ---
		{
			name:   "no baseline, local clearly newer -> modified locally",
			local:  []LocalEntry{localFileEntry("a.csv", "h2", later)},
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h1", syncTime)},
			want:   ModifiedLocally,
		},
		{
			name:   "no baseline, remote clearly newer -> modified remotely",
			local:  []LocalEntry{localFileEntry("a.csv", "h1", syncTime)},
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h2", later)},
			want:   ModifiedRemotely,
		},
		{
			name:   "no baseline, within clock skew -> conflicted",
			local:  []LocalEntry{localFileEntry("a.csv", "h1", withinSkew)},
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h2", syncTime)},
			want:   Conflicted,
		},
		{
			name:   "no baseline, exactly at skew boundary -> conflicted",
			local:  []LocalEntry{localFileEntry("a.csv", "h1", syncTime.Add(mtimeSkew))},
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h2", syncTime)},
			want:   Conflicted,
		},
		{
			name:   "folder baseline entry does not force content comparison",
			local:  []LocalEntry{localFileEntry("a.csv", "h1", later)},
			remote: []RemoteEntry{remoteFileEntry("a.csv", "7", "h2", syncTime)},
			base:   baseMap(baseFolderEntry("a.csv")),
			want:   ModifiedLocally,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := Diff(tt.local, tt.remote, tt.base)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Class,
				"got %s, want %s", entries[0].Class, tt.want)
		})
	}
}

func TestDiff_DisjointTrees(t *testing.T) {
	local := []LocalEntry{localFileEntry("a.csv", "h1", syncTime)}
	remote := []RemoteEntry{remoteFileEntry("b.csv", "7", "h2", syncTime)}

	entries := Diff(local, remote, nil)
	require.Len(t, entries, 2)
	assert.Equal(t, "a.csv", entries[0].Path)
	assert.Equal(t, AddedLocally, entries[0].Class)
	assert.Equal(t, "b.csv", entries[1].Path)
	assert.Equal(t, AddedRemotely, entries[1].Class)
}

func TestDiff_IdenticalTrees(t *testing.T) {
	local := []LocalEntry{
		localFolderEntry("reports"),
		localFileEntry("reports/q3.csv", "h1", later),
		localFileEntry("a.csv", "h2", earlier),
	}
	remote := []RemoteEntry{
		remoteFolderEntry("reports", "43"),
		remoteFileEntry("reports/q3.csv", "9", "h1", syncTime),
		remoteFileEntry("a.csv", "7", "h2", syncTime),
	}

	for _, e := range Diff(local, remote, nil) {
		assert.Equal(t, Unchanged, e.Class, "path %s", e.Path)
	}
}

func TestDiff_SortedByPath(t *testing.T) {
	local := []LocalEntry{
		localFileEntry("z.csv", "h1", syncTime),
		localFileEntry("a.csv", "h2", syncTime),
	}
	remote := []RemoteEntry{
		remoteFileEntry("m.csv", "7", "h3", syncTime),
	}

	entries := Diff(local, remote, nil)
	require.Len(t, entries, 3)
	assert.Equal(t, "a.csv", entries[0].Path)
	assert.Equal(t, "m.csv", entries[1].Path)
	assert.Equal(t, "z.csv", entries[2].Path)
}

func TestDiff_BaselineOnlyPathsIgnored(t *testing.T) {
	// A path deleted on both sides since the last sync needs no action,
	// so it does not appear in the diff at all.
	base := baseMap(baseFileEntry("gone.csv", "h1"))

	entries := Diff(nil, nil, base)
	assert.Empty(t, entries)
}

func TestDiff_CarriesSideMetadata(t *testing.T) {
	local := []LocalEntry{localFileEntry("a.csv", "h2", later)}
	remote := []RemoteEntry{remoteFileEntry("a.csv", "7", "h1", syncTime)}
	base := baseMap(baseFileEntry("a.csv", "h1"))

	entries := Diff(local, remote, base)
	require.Len(t, entries, 1)

	e := entries[0]
	require.NotNil(t, e.Local)
	require.NotNil(t, e.Remote)
	require.NotNil(t, e.Base)
	assert.Equal(t, "h2", e.Local.SHA1)
	assert.Equal(t, "7", e.Remote.ID)
	assert.Equal(t, "h1", e.Base.SHA1)
	assert.Equal(t, KindFile, e.Kind)
}
