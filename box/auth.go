package box

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Endpoint is the Box OAuth2 endpoint pair.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://account.box.com/api/oauth2/authorize",
	TokenURL: "https://api.box.com/oauth2/token",
}

// ErrNoCachedToken is returned when the token cache file does not exist.
var ErrNoCachedToken = errors.New("no cached token")

// OAuthConfig returns the oauth2 configuration for a Box application.
// The redirect URL is filled in by Authorize with the address of its
// local listener.
func OAuthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     Endpoint,
	}
}

// StaticTokenSource returns a token source for a fixed developer token.
// Developer tokens expire after an hour and cannot refresh, so this is
// for scripts and tests rather than long-running sessions.
func StaticTokenSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
}

// LoadToken reads a cached OAuth token from path.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w (looked in %s)", ErrNoCachedToken, path)
		}

		return nil, fmt.Errorf("reading token file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parsing token file %s: %w", path, err)
	}

	return &tok, nil
}

// SaveToken writes a token to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	return nil
}

// cachedTokenSource wraps a refreshing token source and persists every
// refreshed token back to disk, so the next process start picks up the
// newest refresh token instead of replaying an expired one.
type cachedTokenSource struct {
	mu   sync.Mutex
	path string
	src  oauth2.TokenSource
	last string // last persisted access token
}

// CachedTokenSource returns a token source backed by the cache file at
// path. It refreshes through the given OAuth config and writes refreshed
// tokens back to the file. Returns ErrNoCachedToken when the file does
// not exist (run Authorize first).
func CachedTokenSource(ctx context.Context, cfg *oauth2.Config, path string) (oauth2.TokenSource, error) {
	tok, err := LoadToken(path)
	if err != nil {
		return nil, err
	}

	return &cachedTokenSource{
		path: path,
		src:  cfg.TokenSource(ctx, tok),
		last: tok.AccessToken,
	}, nil
}

func (s *cachedTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	if tok.AccessToken != s.last {
		if err := SaveToken(s.path, tok); err != nil {
			return nil, fmt.Errorf("caching refreshed token: %w", err)
		}

		s.last = tok.AccessToken
	}

	return tok, nil
}

const authorizeTimeout = 5 * time.Minute

// Authorize runs the authorization-code flow for a Box application. It
// listens on a random localhost port for the redirect, calls notify with
// the consent URL the user must open, exchanges the returned code, and
// saves the token to cachePath. Blocks until the redirect arrives, the
// context is cancelled, or the timeout elapses.
func Authorize(ctx context.Context, cfg *oauth2.Config, cachePath string, notify func(authURL string)) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting redirect listener: %w", err)
	}
	defer ln.Close()

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	// Copy the config so the caller's redirect URL (if any) is untouched.
	flow := *cfg
	flow.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	type callback struct {
		code string
		err  error
	}

	results := make(chan callback, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- callback{err: errors.New("authorization state mismatch")}

			return
		}

		if errCode := q.Get("error"); errCode != "" {
			http.Error(w, "authorization denied", http.StatusBadRequest)
			results <- callback{err: fmt.Errorf("authorization denied: %s", errCode)}

			return
		}

		fmt.Fprintln(w, "Authorized. You can close this window and return to the terminal.")
		results <- callback{code: q.Get("code")}
	})

	server := &http.Server{Handler: mux}
	go server.Serve(ln)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	notify(flow.AuthCodeURL(state))

	var code string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authorizeTimeout):
		return nil, errors.New("timed out waiting for authorization redirect")
	case cb := <-results:
		if cb.err != nil {
			return nil, cb.err
		}

		code = cb.code
	}

	tok, err := flow.Exchange(ctx, code)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("exchanging authorization code: %w", err)}
	}

	if err := SaveToken(cachePath, tok); err != nil {
		return nil, err
	}

	return tok, nil
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// CurrentUser returns the account the session is authenticated as.
// Doubles as a session check after auth.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var u User
	if err := c.get(ctx, "/users/me", nil, &u); err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	return &u, nil
}
