package box

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SearchOptions narrow a content search. The zero value searches all
// item types everywhere in the account.
type SearchOptions struct {
	Type            string   // "file" or "folder"; empty matches both
	AncestorFolders []string // restrict to these folder subtrees
	FileExtensions  []string // e.g. "csv", "pdf"
	Limit           int64
	Offset          int64
}

// Search runs a full-text search over file names and content. Results
// are paginated the same way as folder listings.
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) (*ItemCollection, error) {
	q := url.Values{
		"query":  {query},
		"fields": {listingFields},
	}

	if opts.Type != "" {
		q.Set("type", opts.Type)
	}

	if len(opts.AncestorFolders) > 0 {
		q.Set("ancestor_folder_ids", strings.Join(opts.AncestorFolders, ","))
	}

	if len(opts.FileExtensions) > 0 {
		q.Set("file_extensions", strings.Join(opts.FileExtensions, ","))
	}

	if opts.Limit > 0 {
		q.Set("limit", strconv.FormatInt(opts.Limit, 10))
	}

	if opts.Offset > 0 {
		q.Set("offset", strconv.FormatInt(opts.Offset, 10))
	}

	var results ItemCollection
	if err := c.get(ctx, "/search", q, &results); err != nil {
		return nil, fmt.Errorf("searching for %q: %w", query, err)
	}

	return &results, nil
}
