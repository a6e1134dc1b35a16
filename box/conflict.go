package box

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// RenderConflict returns a terminal-friendly diff between the two sides
// of a conflicted path. Insertions mark text only present locally,
// deletions text only present remotely. Preview only; the sync engine
// never resolves conflicts itself.
func RenderConflict(local, remote []byte) string {
	dmp := diffmatchpatch.New()

	diffs := dmp.DiffMain(string(remote), string(local), true)
	if len(diffs) > 2 {
		diffs = dmp.DiffCleanupSemantic(diffs)
	}

	return dmp.DiffPrettyText(diffs)
}

// ConflictDiff fetches both sides of a path under remote folderID and
// renders their difference. Works for any file present on both sides,
// not just ones the last run reported as conflicted.
func (s *Syncer) ConflictDiff(ctx context.Context, folderID, relPath string) (string, error) {
	relPath = normalizePath(relPath)

	entries, err := s.remote.ListTree(ctx, folderID)
	if err != nil {
		return "", err
	}

	var fileID string

	for _, e := range entries {
		if e.Path == relPath && e.Kind == KindFile {
			fileID = e.ID
			break
		}
	}

	if fileID == "" {
		return "", fmt.Errorf("no remote file at %q", relPath)
	}

	local, err := s.dir.ReadFile(relPath)
	if err != nil {
		return "", fmt.Errorf("reading local side: %w", err)
	}

	var remote bytes.Buffer
	if err := s.remote.DownloadFile(ctx, fileID, &remote); err != nil {
		return "", fmt.Errorf("downloading remote side: %w", err)
	}

	return RenderConflict(local, remote.Bytes()), nil
}
