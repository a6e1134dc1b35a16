package box

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// listingFields are the item fields requested on every listing call.
// sha1 and content_modified_at are not in the default response set, and
// the sync engine cannot classify entries without them.
const listingFields = "type,id,name,etag,sha1,size,modified_at,content_modified_at"

// defaultPageSize is the number of items requested per listing page.
// Box caps limit at 1000.
const defaultPageSize = 500

// FolderInfo fetches metadata for a single folder.
func (c *Client) FolderInfo(ctx context.Context, folderID string) (*Folder, error) {
	var folder Folder
	if err := c.get(ctx, "/folders/"+folderID, nil, &folder); err != nil {
		return nil, fmt.Errorf("getting folder %s: %w", folderID, err)
	}

	return &folder, nil
}

// FolderItems fetches one page of a folder's direct children. Offset
// paginates: keep calling with offset advanced by len(Entries) until the
// page comes back short of limit.
func (c *Client) FolderItems(ctx context.Context, folderID string, offset, limit int64) (*ItemCollection, error) {
	query := url.Values{
		"fields": {listingFields},
		"offset": {strconv.FormatInt(offset, 10)},
		"limit":  {strconv.FormatInt(limit, 10)},
	}

	var page ItemCollection
	if err := c.get(ctx, "/folders/"+folderID+"/items", query, &page); err != nil {
		return nil, fmt.Errorf("listing folder %s: %w", folderID, err)
	}

	return &page, nil
}

// CreateFolder creates a folder named name under parentID.
func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (*Folder, error) {
	payload := struct {
		Name   string  `json:"name"`
		Parent ItemRef `json:"parent"`
	}{Name: name, Parent: ItemRef{ID: parentID}}

	var folder Folder
	if err := c.postJSON(ctx, "/folders", payload, &folder); err != nil {
		return nil, fmt.Errorf("creating folder %q under %s: %w", name, parentID, err)
	}

	return &folder, nil
}

// DeleteFolder moves a folder to the trash. Box refuses to delete a
// non-empty folder unless recursive is set.
func (c *Client) DeleteFolder(ctx context.Context, folderID string, recursive bool) error {
	var query url.Values
	if recursive {
		query = url.Values{"recursive": {"true"}}
	}

	if err := c.del(ctx, "/folders/"+folderID, query); err != nil {
		return fmt.Errorf("deleting folder %s: %w", folderID, err)
	}

	return nil
}
