package box

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-success response from the Box API, decoded from the
// standard error body ({"type":"error","status":...,"code":...}).
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("box API error %d (%s): %s", e.Status, e.Code, e.Message)
	}

	return fmt.Sprintf("box API error %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is an API error with status 404, which
// Box returns for missing or trashed items.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// AuthError is an authentication or authorization failure. It is fatal:
// a sync aborts before any listing when the session cannot be
// established.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return "authentication failed: " + e.Err.Error() }
func (e *AuthError) Unwrap() error { return e.Err }

// RemoteListError is a failure while enumerating the remote tree. It is
// fatal: acting on a partial remote listing could delete or overwrite
// files that merely failed to list.
type RemoteListError struct {
	FolderID string
	Err      error
}

func (e *RemoteListError) Error() string {
	return fmt.Sprintf("listing remote folder %s: %v", e.FolderID, e.Err)
}
func (e *RemoteListError) Unwrap() error { return e.Err }

// LocalListError is a failure while walking the local tree. It is fatal
// for the same reason as RemoteListError: an unreadable subtree must not
// be mistaken for a deleted one.
type LocalListError struct {
	Path string
	Err  error
}

func (e *LocalListError) Error() string {
	return fmt.Sprintf("listing local path %s: %v", e.Path, e.Err)
}
func (e *LocalListError) Unwrap() error { return e.Err }

// UploadError is a failure to apply one upload action. Recorded per path
// in the sync result; the rest of the plan continues.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string { return fmt.Sprintf("uploading %s: %v", e.Path, e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// DownloadError is a failure to apply one download action.
type DownloadError struct {
	Path string
	Err  error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("downloading %s: %v", e.Path, e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

// DeleteError is a failure to apply one delete action.
type DeleteError struct {
	Path string
	Err  error
}

func (e *DeleteError) Error() string { return fmt.Sprintf("deleting %s: %v", e.Path, e.Err) }
func (e *DeleteError) Unwrap() error { return e.Err }
