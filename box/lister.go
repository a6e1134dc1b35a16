package box

import (
	"context"
	"iter"
	"slices"
	"strings"
)

// WalkFolder lazily walks the remote tree rooted at folderID, yielding
// entries depth-first with each folder before its contents. Pages are
// fetched on demand, so breaking out of the loop early stops further API
// calls. A listing failure is yielded once with a zero entry and ends
// the walk.
func (c *Client) WalkFolder(ctx context.Context, folderID string) iter.Seq2[RemoteEntry, error] {
	return func(yield func(RemoteEntry, error) bool) {
		c.walkFolder(ctx, folderID, "", yield)
	}
}

// walkFolder reports whether iteration should continue into siblings.
func (c *Client) walkFolder(ctx context.Context, folderID, prefix string, yield func(RemoteEntry, error) bool) bool {
	for offset := int64(0); ; {
		page, err := c.FolderItems(ctx, folderID, offset, defaultPageSize)
		if err != nil {
			yield(RemoteEntry{}, &RemoteListError{FolderID: folderID, Err: err})

			return false
		}

		for _, item := range page.Entries {
			entry, ok := remoteEntry(item, prefix)
			if !ok {
				// Box also stores web links and other non-file items.
				// They have no local counterpart, so the sync skips them.
				continue
			}

			if !yield(entry, nil) {
				return false
			}

			if entry.Kind == KindFolder {
				if !c.walkFolder(ctx, item.ID, entry.Path, yield) {
					return false
				}
			}
		}

		offset += int64(len(page.Entries))
		if len(page.Entries) == 0 || offset >= page.TotalCount {
			return true
		}
	}
}

// ListTree collects the full remote tree rooted at folderID, sorted by
// path. Any listing failure aborts the whole collection: acting on a
// partial listing could misread unlisted files as deleted.
func (c *Client) ListTree(ctx context.Context, folderID string) ([]RemoteEntry, error) {
	var entries []RemoteEntry

	for entry, err := range c.WalkFolder(ctx, folderID) {
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	slices.SortFunc(entries, func(a, b RemoteEntry) int {
		return strings.Compare(a.Path, b.Path)
	})

	return entries, nil
}

// remoteEntry normalizes one listing item into a tree entry. Returns
// false for item types that do not participate in sync.
func remoteEntry(item Item, prefix string) (RemoteEntry, bool) {
	var kind EntryKind

	switch item.Type {
	case "file":
		kind = KindFile
	case "folder":
		kind = KindFolder
	default:
		return RemoteEntry{}, false
	}

	// content_modified_at tracks the content itself; modified_at also
	// moves on metadata edits. Fall back when the field is missing.
	mod := item.ContentModifiedAt
	if mod.IsZero() {
		mod = item.ModifiedAt
	}

	path := normalizePath(item.Name)
	if prefix != "" {
		path = prefix + "/" + path
	}

	return RemoteEntry{
		Path:    path,
		ID:      item.ID,
		Kind:    kind,
		ModTime: mod,
		SHA1:    strings.ToLower(item.SHA1),
		Size:    item.Size,
	}, true
}
