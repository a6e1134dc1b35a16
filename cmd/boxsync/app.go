package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/boxsync/boxsync/box"
	"github.com/boxsync/boxsync/internal/baseline"
	"github.com/boxsync/boxsync/internal/config"
	boxerrors "github.com/boxsync/boxsync/internal/errors"
	"github.com/boxsync/boxsync/internal/logging"
)

// profilesOverride is the --config flag value. It overrides the default
// profiles file location for every command.
var profilesOverride string

// loadApp loads the environment configuration and builds the logger the
// commands share.
func loadApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	if profilesOverride != "" {
		cfg.ProfilesFile = profilesOverride
	}

	return cfg, logging.NewLogger(cfg.Environment), nil
}

// tokenSource picks the credential source: a fixed developer token when
// BOX_ACCESS_TOKEN is set, the cached refreshing OAuth token otherwise.
func tokenSource(ctx context.Context, cfg *config.Config) (oauth2.TokenSource, error) {
	if cfg.AccessToken != "" {
		return box.StaticTokenSource(cfg.AccessToken), nil
	}

	if !cfg.HasOAuthClient() {
		return nil, fmt.Errorf("%w (set BOX_ACCESS_TOKEN, or BOX_CLIENT_ID and BOX_CLIENT_SECRET)",
			boxerrors.ErrNoCredentials)
	}

	src, err := box.CachedTokenSource(ctx, box.OAuthConfig(cfg.ClientID, cfg.ClientSecret), cfg.TokenFile)
	if err != nil {
		if errors.Is(err, box.ErrNoCachedToken) {
			return nil, boxerrors.ErrNoToken
		}

		return nil, fmt.Errorf("loading cached token: %w", err)
	}

	return src, nil
}

func newClient(cfg *config.Config, tokens oauth2.TokenSource) *box.Client {
	var opts []box.ClientOption

	if cfg.APIURL != "" {
		opts = append(opts, box.WithBaseURL(cfg.APIURL))
	}

	if cfg.UploadURL != "" {
		opts = append(opts, box.WithUploadURL(cfg.UploadURL))
	}

	return box.NewClient(tokens, opts...)
}

// newSyncer wires a client, the local directory, and the baseline store
// into a Syncer. The returned cleanup closes the store and must run when
// the command is done.
func newSyncer(ctx context.Context, cfg *config.Config, logger *slog.Logger, target syncTarget, progress func(box.Outcome)) (*box.Syncer, func(), error) {
	tokens, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	dir, err := box.NewLocalDir(target.dir)
	if err != nil {
		return nil, nil, err
	}

	opts := []box.SyncerOption{
		box.WithLogger(logger),
		box.WithWorkers(target.workers),
		box.WithExclude(target.exclude),
	}

	cleanup := func() {}

	// The baseline is advisory: a store that will not open degrades
	// diffing to timestamp comparison, it does not block the sync.
	store, err := baseline.Open(cfg.StateFile)
	if err != nil {
		logger.Warn("opening baseline store, continuing without",
			slog.String("path", cfg.StateFile),
			slog.String("error", err.Error()),
		)
	} else {
		opts = append(opts, box.WithBaseline(store))
		cleanup = func() { store.Close() }
	}

	if progress != nil {
		opts = append(opts, box.WithProgress(progress))
	}

	return box.NewSyncer(newClient(cfg, tokens), dir, opts...), cleanup, nil
}
