package box

import "time"

// Wire types for the Box content API (api.box.com/2.0).

// ItemRef is a minimal reference to a file or folder, used in parent
// fields and request payloads.
type ItemRef struct {
	Type string `json:"type,omitempty"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Item is a file or folder entry as returned by folder listings and
// search. Type is "file" or "folder". SHA1 and Size are only populated
// for files, and only when requested via the fields parameter.
type Item struct {
	Type              string    `json:"type"`
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Etag              string    `json:"etag,omitempty"`
	SHA1              string    `json:"sha1,omitempty"`
	Size              int64     `json:"size,omitempty"`
	ModifiedAt        time.Time `json:"modified_at,omitzero"`
	ContentModifiedAt time.Time `json:"content_modified_at,omitzero"`
	Parent            *ItemRef  `json:"parent,omitempty"`
}

// ItemCollection is a paginated set of items from GET /folders/{id}/items
// or GET /search.
type ItemCollection struct {
	TotalCount int64  `json:"total_count"`
	Entries    []Item `json:"entries"`
	Offset     int64  `json:"offset"`
	Limit      int64  `json:"limit"`
}

// File is the full metadata for a single file (GET /files/{id} and
// upload responses).
type File struct {
	Type              string       `json:"type"`
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Etag              string       `json:"etag,omitempty"`
	SHA1              string       `json:"sha1,omitempty"`
	Size              int64        `json:"size,omitempty"`
	Description       string       `json:"description,omitempty"`
	CreatedAt         time.Time    `json:"created_at,omitzero"`
	ModifiedAt        time.Time    `json:"modified_at,omitzero"`
	ContentModifiedAt time.Time    `json:"content_modified_at,omitzero"`
	Parent            *ItemRef     `json:"parent,omitempty"`
	FileVersion       *FileVersion `json:"file_version,omitempty"`
}

// FileVersion identifies one retained version of a file. Box creates a
// new version on every content upload instead of overwriting in place.
type FileVersion struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	SHA1 string `json:"sha1,omitempty"`
}

// Folder is the full metadata for a single folder (GET /folders/{id}
// and folder creation responses).
type Folder struct {
	Type           string          `json:"type"`
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Etag           string          `json:"etag,omitempty"`
	Description    string          `json:"description,omitempty"`
	CreatedAt      time.Time       `json:"created_at,omitzero"`
	ModifiedAt     time.Time       `json:"modified_at,omitzero"`
	Parent         *ItemRef        `json:"parent,omitempty"`
	ItemCollection *ItemCollection `json:"item_collection,omitempty"`
}

// User is a Box account, as returned by GET /users/me.
type User struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Login       string `json:"login"`
	SpaceAmount int64  `json:"space_amount,omitempty"`
	SpaceUsed   int64  `json:"space_used,omitempty"`
}

// RootFolderID is the id of the account's root folder ("All Files").
const RootFolderID = "0"

// Normalized tree entries. The sync engine joins local and remote
// listings on the relative path, so both sides share the same shape.

// EntryKind distinguishes files from folders in tree listings.
type EntryKind string

const (
	KindFile   EntryKind = "file"
	KindFolder EntryKind = "folder"
)

// RemoteEntry is one path in a remote folder tree, normalized for sync.
// Path is relative to the listed root, forward-slash separated.
type RemoteEntry struct {
	Path    string
	ID      string
	Kind    EntryKind
	ModTime time.Time
	SHA1    string // empty for folders
	Size    int64
}

// LocalEntry is one path under a local root, normalized for sync. The
// path itself is the identity; there is no service-assigned id.
type LocalEntry struct {
	Path    string
	Kind    EntryKind
	ModTime time.Time
	SHA1    string // empty for folders
	Size    int64
}
