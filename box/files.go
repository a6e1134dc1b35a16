package box

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// FileInfo fetches metadata for a single file, including its sha1.
func (c *Client) FileInfo(ctx context.Context, fileID string) (*File, error) {
	query := url.Values{"fields": {listingFields}}

	var file File
	if err := c.get(ctx, "/files/"+fileID, query, &file); err != nil {
		return nil, fmt.Errorf("getting file %s: %w", fileID, err)
	}

	return &file, nil
}

// DownloadFile streams a file's content to w. The API answers with a
// redirect to a short-lived download URL, which the HTTP client follows;
// the signed URL carries its own authorization.
func (c *Client) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/files/"+fileID+"/content", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

		return fmt.Errorf("downloading file %s: %w", fileID, apiError(resp.StatusCode, body))
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("streaming file %s: %w", fileID, err)
	}

	return nil
}

// DeleteFile moves a file to the trash.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.del(ctx, "/files/"+fileID, nil); err != nil {
		return fmt.Errorf("deleting file %s: %w", fileID, err)
	}

	return nil
}

// uploadAttrs is the attributes part of a multipart upload.
type uploadAttrs struct {
	Name              string   `json:"name"`
	Parent            *ItemRef `json:"parent,omitempty"`
	ContentModifiedAt string   `json:"content_modified_at,omitempty"`
}

// UploadFile creates a new file named name under parentID with the
// given content. modTime, when non-zero, is recorded as the file's
// content modification time so sync runs on other machines see the
// original timestamp. Fails with a 409 if the name is already taken;
// use UploadVersion for existing files.
func (c *Client) UploadFile(ctx context.Context, parentID, name string, content io.Reader, modTime time.Time) (*File, error) {
	attrs := uploadAttrs{
		Name:              name,
		Parent:            &ItemRef{ID: parentID},
		ContentModifiedAt: fmtModTime(modTime),
	}

	return c.uploadMultipart(ctx, "/files/content", attrs, name, content)
}

// UploadVersion uploads new content for an existing file. Box keeps the
// previous content as a file version rather than overwriting in place.
func (c *Client) UploadVersion(ctx context.Context, fileID, name string, content io.Reader, modTime time.Time) (*File, error) {
	attrs := uploadAttrs{
		Name:              name,
		ContentModifiedAt: fmtModTime(modTime),
	}

	return c.uploadMultipart(ctx, "/files/"+fileID+"/content", attrs, name, content)
}

func fmtModTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.UTC().Format(time.RFC3339)
}

// uploadMultipart posts a multipart request (attributes JSON part plus
// file content part) to the upload host and decodes the created entry.
// The body is streamed through a pipe, so large files never sit in
// memory whole.
func (c *Client) uploadMultipart(ctx context.Context, endpoint string, attrs uploadAttrs, name string, content io.Reader) (*File, error) {
	attrJSON, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("marshalling upload attributes: %w", err)
	}

	// Sniff the content type from the leading bytes, then stitch the
	// consumed header back in front of the remaining stream.
	header := new(bytes.Buffer)

	mtype, err := mimetype.DetectReader(io.TeeReader(content, header))
	if err != nil {
		return nil, fmt.Errorf("detecting content type for %q: %w", name, err)
	}

	content = io.MultiReader(header, content)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadParts(mw, attrJSON, name, mtype.String(), content))
	}()

	req, err := c.newRequest(ctx, http.MethodPost, c.uploadURL+endpoint, pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading %q: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upload response for %q: %w", name, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("uploading %q: %w", name, apiError(resp.StatusCode, body))
	}

	var created struct {
		TotalCount int64  `json:"total_count"`
		Entries    []File `json:"entries"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("decoding upload response for %q: %w", name, err)
	}

	if len(created.Entries) == 0 {
		return nil, fmt.Errorf("upload response for %q contained no entries", name)
	}

	return &created.Entries[0], nil
}

func writeUploadParts(mw *multipart.Writer, attrJSON []byte, filename, contentType string, content io.Reader) error {
	if err := mw.WriteField("attributes", string(attrJSON)); err != nil {
		return fmt.Errorf("writing attributes part: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating file part: %w", err)
	}

	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("copying file content: %w", err)
	}

	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
