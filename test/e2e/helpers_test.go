package e2e_test

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/boxsync/boxsync/box"
	"github.com/boxsync/boxsync/internal/baseline"
)

// Fixed timestamps, whole seconds so they survive the RFC3339 round
// trip through upload attributes.
var (
	seedTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	editTime = seedTime.Add(1 * time.Hour)
)

// fakeBox is an in-memory Box content API: folder listings with
// pagination, folder create/delete, multipart uploads, redirecting
// downloads, and deletes, with Box's error codes for the cases the
// sync engine depends on.
type fakeBox struct {
	mu      sync.Mutex
	folders map[string]*fakeFolder
	files   map[string]*fakeFile
	nextID  int
}

type fakeFolder struct {
	id       string
	name     string
	parentID string
}

type fakeFile struct {
	id       string
	name     string
	parentID string
	content  []byte
	modTime  time.Time
	versions int
}

func newFakeBox() *fakeBox {
	return &fakeBox{
		folders: map[string]*fakeFolder{"0": {id: "0", name: "All Files"}},
		files:   map[string]*fakeFile{},
		nextID:  100,
	}
}

// newID must be called with mu held.
func (f *fakeBox) newID() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *fakeBox) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /folders/{id}/items", f.handleListItems)
	mux.HandleFunc("GET /folders/{id}", f.handleFolderInfo)
	mux.HandleFunc("POST /folders", f.handleCreateFolder)
	mux.HandleFunc("DELETE /folders/{id}", f.handleDeleteFolder)
	mux.HandleFunc("GET /files/{id}", f.handleFileInfo)
	mux.HandleFunc("GET /files/{id}/content", f.handleDownload)
	mux.HandleFunc("GET /dl/{id}", f.handleDownloadDirect)
	mux.HandleFunc("DELETE /files/{id}", f.handleDeleteFile)
	mux.HandleFunc("POST /files/content", f.handleUpload)
	mux.HandleFunc("POST /files/{id}/content", f.handleUploadVersion)

	return mux
}

func (f *fakeFolder) item() map[string]any {
	return map[string]any{
		"type": "folder",
		"id":   f.id,
		"name": f.name,
	}
}

func (f *fakeFile) item() map[string]any {
	sum := sha1.Sum(f.content)

	return map[string]any{
		"type":                "file",
		"id":                  f.id,
		"name":                f.name,
		"sha1":                hex.EncodeToString(sum[:]),
		"size":                len(f.content),
		"modified_at":         f.modTime.Format(time.RFC3339),
		"content_modified_at": f.modTime.Format(time.RFC3339),
		"file_version": map[string]any{
			"type": "file_version",
			"id":   fmt.Sprintf("v%s-%d", f.id, f.versions),
		},
	}
}

func (f *fakeBox) handleListItems(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	folderID := r.PathValue("id")
	if _, ok := f.folders[folderID]; !ok {
		writeAPIError(w, http.StatusNotFound, "not_found", "folder not found")
		return
	}

	var entries []map[string]any

	for _, folder := range f.folders {
		if folder.parentID == folderID {
			entries = append(entries, folder.item())
		}
	}

	for _, file := range f.files {
		if file.parentID == folderID {
			entries = append(entries, file.item())
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i]["name"].(string) < entries[j]["name"].(string)
	})

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	if limit <= 0 {
		limit = 100
	}

	total := len(entries)
	if offset > total {
		offset = total
	}

	end := offset + limit
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total_count": total,
		"entries":     entries[offset:end],
		"offset":      offset,
		"limit":       limit,
	})
}

func (f *fakeBox) handleFolderInfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	folder, ok := f.folders[r.PathValue("id")]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "not_found", "folder not found")
		return
	}

	writeJSON(w, http.StatusOK, folder.item())
}

func (f *fakeBox) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}

	name := gjson.GetBytes(body, "name").String()
	parentID := gjson.GetBytes(body, "parent.id").String()

	if _, ok := f.folders[parentID]; !ok {
		writeAPIError(w, http.StatusNotFound, "not_found", "parent folder not found")
		return
	}

	if f.nameInUse(parentID, name) {
		writeAPIError(w, http.StatusConflict, "item_name_in_use", "an item with that name already exists")
		return
	}

	folder := &fakeFolder{id: f.newID(), name: name, parentID: parentID}
	f.folders[folder.id] = folder

	writeJSON(w, http.StatusCreated, folder.item())
}

func (f *fakeBox) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	folderID := r.PathValue("id")

	if folderID == "0" {
		writeAPIError(w, http.StatusBadRequest, "bad_request", "the root folder cannot be deleted")
		return
	}

	if _, ok := f.folders[folderID]; !ok {
		writeAPIError(w, http.StatusNotFound, "not_found", "folder not found")
		return
	}

	recursive := r.URL.Query().Get("recursive") == "true"
	if !recursive && f.hasChildren(folderID) {
		writeAPIError(w, http.StatusBadRequest, "folder_not_empty", "folder is not empty")
		return
	}

	f.removeTree(folderID)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeBox) handleFileInfo(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[r.PathValue("id")]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}

	writeJSON(w, http.StatusOK, file.item())
}

// handleDownload redirects to a download URL the way the real API does;
// the client's HTTP stack follows it.
func (f *fakeBox) handleDownload(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	id := r.PathValue("id")
	_, ok := f.files[id]
	f.mu.Unlock()

	if !ok {
		writeAPIError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}

	http.Redirect(w, r, "/dl/"+id, http.StatusFound)
}

func (f *fakeBox) handleDownloadDirect(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, ok := f.files[r.PathValue("id")]
	if !ok {
		writeAPIError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(file.content)
}

func (f *fakeBox) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := f.files[id]; !ok {
		writeAPIError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}

	delete(f.files, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeBox) handleUpload(w http.ResponseWriter, r *http.Request) {
	attrs, content, ok := readUpload(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	name := gjson.Get(attrs, "name").String()
	parentID := gjson.Get(attrs, "parent.id").String()

	if _, exists := f.folders[parentID]; !exists {
		writeAPIError(w, http.StatusNotFound, "not_found", "parent folder not found")
		return
	}

	if f.nameInUse(parentID, name) {
		writeAPIError(w, http.StatusConflict, "item_name_in_use", "an item with that name already exists")
		return
	}

	file := &fakeFile{
		id:       f.newID(),
		name:     name,
		parentID: parentID,
		content:  content,
		modTime:  uploadModTime(attrs),
		versions: 1,
	}
	f.files[file.id] = file

	writeJSON(w, http.StatusCreated, map[string]any{
		"total_count": 1,
		"entries":     []map[string]any{file.item()},
	})
}

func (f *fakeBox) handleUploadVersion(w http.ResponseWriter, r *http.Request) {
	attrs, content, ok := readUpload(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, exists := f.files[r.PathValue("id")]
	if !exists {
		writeAPIError(w, http.StatusNotFound, "not_found", "file not found")
		return
	}

	file.content = content
	file.modTime = uploadModTime(attrs)
	file.versions++

	writeJSON(w, http.StatusCreated, map[string]any{
		"total_count": 1,
		"entries":     []map[string]any{file.item()},
	})
}

// readUpload pulls the attributes JSON and file content out of a
// multipart upload request. On failure it writes the error response and
// returns ok false.
func readUpload(w http.ResponseWriter, r *http.Request) (attrs string, content []byte, ok bool) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeAPIError(w, http.StatusBadRequest, "bad_request", "malformed multipart body")
		return "", nil, false
	}

	attrs = r.FormValue("attributes")

	src, _, err := r.FormFile("file")
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "bad_request", "missing file part")
		return "", nil, false
	}
	defer src.Close()

	content, err = io.ReadAll(src)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "bad_request", "unreadable file part")
		return "", nil, false
	}

	return attrs, content, true
}

func uploadModTime(attrs string) time.Time {
	raw := gjson.Get(attrs, "content_modified_at").String()

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Now().UTC().Truncate(time.Second)
	}

	return t
}

// nameInUse must be called with mu held.
func (f *fakeBox) nameInUse(parentID, name string) bool {
	for _, folder := range f.folders {
		if folder.parentID == parentID && folder.name == name {
			return true
		}
	}

	for _, file := range f.files {
		if file.parentID == parentID && file.name == name {
			return true
		}
	}

	return false
}

// hasChildren must be called with mu held.
func (f *fakeBox) hasChildren(folderID string) bool {
	for _, folder := range f.folders {
		if folder.parentID == folderID {
			return true
		}
	}

	for _, file := range f.files {
		if file.parentID == folderID {
			return true
		}
	}

	return false
}

// removeTree must be called with mu held.
func (f *fakeBox) removeTree(folderID string) {
	for id, file := range f.files {
		if file.parentID == folderID {
			delete(f.files, id)
		}
	}

	for id, folder := range f.folders {
		if folder.parentID == folderID {
			f.removeTree(id)
		}
	}

	delete(f.folders, folderID)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"type":    "error",
		"status":  status,
		"code":    code,
		"message": message,
	})
}

// harness wires the fake Box API to a real client over loopback HTTP.
type harness struct {
	api    *fakeBox
	client *box.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	api := newFakeBox()

	ts := httptest.NewServer(api.handler())
	t.Cleanup(ts.Close)

	client := box.NewClient(
		box.StaticTokenSource("e2e-test-token"),
		box.WithBaseURL(ts.URL),
		box.WithUploadURL(ts.URL),
	)

	return &harness{api: api, client: client}
}

// syncer builds a Syncer over the fake remote and the given local dir.
func (h *harness) syncer(t *testing.T, dir *box.LocalDir, opts ...box.SyncerOption) *box.Syncer {
	t.Helper()

	base := []box.SyncerOption{box.WithLogger(slog.New(slog.DiscardHandler))}

	return box.NewSyncer(h.client, dir, append(base, opts...)...)
}

// seedFolder plants a folder directly in the fake store, bypassing the
// API, and returns its id.
func (h *harness) seedFolder(t *testing.T, parentID, name string) string {
	t.Helper()

	h.api.mu.Lock()
	defer h.api.mu.Unlock()

	folder := &fakeFolder{id: h.api.newID(), name: name, parentID: parentID}
	h.api.folders[folder.id] = folder

	return folder.id
}

// seedFile plants a file directly in the fake store and returns its id.
func (h *harness) seedFile(t *testing.T, parentID, name, content string, modTime time.Time) string {
	t.Helper()

	h.api.mu.Lock()
	defer h.api.mu.Unlock()

	file := &fakeFile{
		id:       h.api.newID(),
		name:     name,
		parentID: parentID,
		content:  []byte(content),
		modTime:  modTime,
		versions: 1,
	}
	h.api.files[file.id] = file

	return file.id
}

// editRemote replaces a remote file's content out of band, the way
// another machine editing it would.
func (h *harness) editRemote(t *testing.T, path, content string, modTime time.Time) {
	t.Helper()

	id, isFile, ok := h.findRemote(path)
	require.True(t, ok, "remote path %s not found", path)
	require.True(t, isFile, "remote path %s is a folder", path)

	h.api.mu.Lock()
	defer h.api.mu.Unlock()

	file := h.api.files[id]
	file.content = []byte(content)
	file.modTime = modTime
	file.versions++
}

// findRemote resolves a slash-separated path from the root folder.
func (h *harness) findRemote(path string) (id string, isFile bool, ok bool) {
	h.api.mu.Lock()
	defer h.api.mu.Unlock()

	parentID := "0"

	segments := strings.Split(path, "/")
	for i, segment := range segments {
		last := i == len(segments)-1

		var folderID string

		for _, folder := range h.api.folders {
			if folder.parentID == parentID && folder.name == segment {
				folderID = folder.id
				break
			}
		}

		if last {
			for _, file := range h.api.files {
				if file.parentID == parentID && file.name == segment {
					return file.id, true, true
				}
			}

			if folderID != "" {
				return folderID, false, true
			}

			return "", false, false
		}

		if folderID == "" {
			return "", false, false
		}

		parentID = folderID
	}

	return "", false, false
}

func (h *harness) remoteExists(path string) bool {
	_, _, ok := h.findRemote(path)
	return ok
}

func (h *harness) remoteContent(t *testing.T, path string) string {
	t.Helper()

	id, isFile, ok := h.findRemote(path)
	require.True(t, ok, "remote path %s not found", path)
	require.True(t, isFile, "remote path %s is a folder", path)

	h.api.mu.Lock()
	defer h.api.mu.Unlock()

	return string(h.api.files[id].content)
}

func (h *harness) remoteVersions(t *testing.T, path string) int {
	t.Helper()

	id, isFile, ok := h.findRemote(path)
	require.True(t, ok, "remote path %s not found", path)
	require.True(t, isFile, "remote path %s is a folder", path)

	h.api.mu.Lock()
	defer h.api.mu.Unlock()

	return h.api.files[id].versions
}

func newLocalDir(t *testing.T) *box.LocalDir {
	t.Helper()

	dir, err := box.NewLocalDir(t.TempDir())
	require.NoError(t, err)

	return dir
}

func openStore(t *testing.T) *baseline.Store {
	t.Helper()

	store, err := baseline.Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func writeLocal(t *testing.T, dir *box.LocalDir, path, content string, mtime time.Time) {
	t.Helper()

	require.NoError(t, dir.WriteFile(path, []byte(content), mtime))
}

func readLocal(t *testing.T, dir *box.LocalDir, path string) string {
	t.Helper()

	data, err := dir.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}
