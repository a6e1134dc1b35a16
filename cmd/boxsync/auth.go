package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/boxsync/boxsync/box"
	boxerrors "github.com/boxsync/boxsync/internal/errors"
)

func newAuthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize with Box and cache the token",
		Long: `Auth runs the OAuth2 authorization flow for the Box application named
by BOX_CLIENT_ID and BOX_CLIENT_SECRET. It prints a consent URL to
open in a browser, waits for the redirect, and caches the token for
every other command. Cached tokens refresh themselves from then on.`,
		Args: cobra.NoArgs,
		RunE: runAuth,
	}
}

func runAuth(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := loadApp()
	if err != nil {
		return err
	}

	if !cfg.HasOAuthClient() {
		return fmt.Errorf("%w (set BOX_CLIENT_ID and BOX_CLIENT_SECRET)", boxerrors.ErrNoCredentials)
	}

	oauthCfg := box.OAuthConfig(cfg.ClientID, cfg.ClientSecret)

	tok, err := box.Authorize(ctx, oauthCfg, cfg.TokenFile, func(authURL string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL in a browser to authorize boxsync:\n\n  %s\n\n", authURL)
	})
	if err != nil {
		return err
	}

	client := newClient(cfg, oauthCfg.TokenSource(ctx, tok))

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("token saved, but the session check failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Authorized as %s <%s>. Token cached at %s\n",
		user.Name, user.Login, cfg.TokenFile)

	return nil
}
