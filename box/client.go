package box

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	defaultBaseURL   = "https://api.box.com/2.0"
	defaultUploadURL = "https://upload.box.com/api/2.0"
)

// Client talks to the Box content API on behalf of one session. It holds
// no process-global state; separate clients with separate token sources
// can run side by side.
type Client struct {
	httpClient *http.Client
	tokens     oauth2.TokenSource
	baseURL    string
	uploadURL  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Timeouts and
// transport-level retry policy belong to this client, not to the API
// wrapper.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the API endpoint. Tests point this at a local
// fake server.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithUploadURL overrides the upload endpoint (uploads go to a separate
// host in production).
func WithUploadURL(u string) ClientOption {
	return func(c *Client) { c.uploadURL = strings.TrimRight(u, "/") }
}

// NewClient creates an API client authenticating with the given token
// source. The source supplies (and refreshes) the bearer token for every
// request; see StaticTokenSource and CachedTokenSource.
func NewClient(tokens oauth2.TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		tokens:     tokens,
		baseURL:    defaultBaseURL,
		uploadURL:  defaultUploadURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// newRequest builds an authenticated request. A token source failure is
// an AuthError: nothing can proceed without a bearer token.
func (c *Client) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	tok, err := c.tokens.Token()
	if err != nil {
		return nil, &AuthError{Err: err}
	}

	tok.SetAuthHeader(req)

	return req, nil
}

// do sends a request against the API host and decodes a JSON response
// into result (when non-nil). Non-2xx responses become typed API errors.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body io.Reader, contentType string, result any) error {
	req, err := c.newRequest(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return err
	}

	if query != nil {
		req.URL.RawQuery = query.Encode()
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return apiError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response from %s: %w", endpoint, err)
		}
	}

	return nil
}

// get sends a GET request against the API host.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, result any) error {
	return c.do(ctx, http.MethodGet, endpoint, query, nil, "", result)
}

// postJSON sends a JSON POST request against the API host.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling request body: %w", err)
	}

	return c.do(ctx, http.MethodPost, endpoint, nil, strings.NewReader(string(body)), "application/json", result)
}

// del sends a DELETE request against the API host. Box answers deletes
// with 204 and an empty body.
func (c *Client) del(ctx context.Context, endpoint string, query url.Values) error {
	return c.do(ctx, http.MethodDelete, endpoint, query, nil, "", nil)
}

// apiError decodes the standard Box error body. The body is sniffed with
// gjson rather than fully decoded: error responses are not guaranteed to
// be JSON (proxies, HTML error pages), and only three fields matter.
func apiError(status int, body []byte) error {
	apiErr := &APIError{
		Status:  status,
		Message: http.StatusText(status),
	}

	if gjson.ValidBytes(body) {
		if m := gjson.GetBytes(body, "message"); m.Exists() {
			apiErr.Message = m.Str
		}

		apiErr.Code = gjson.GetBytes(body, "code").Str
		apiErr.RequestID = gjson.GetBytes(body, "request_id").Str
	}

	// 401 means the token was rejected. Surface it as an auth failure so
	// callers abort instead of recording per-file errors.
	if status == http.StatusUnauthorized {
		return &AuthError{Err: apiErr}
	}

	return apiErr
}
