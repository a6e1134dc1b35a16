package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Build information, set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:   "boxsync",
		Short: "Synchronize local directories with Box folders",
		Long: `boxsync keeps a local directory and a Box folder in step. Push uploads
local changes, fetch downloads remote ones, and watch keeps pushing as
files change. Credentials come from the environment: BOX_ACCESS_TOKEN
for a fixed developer token, or BOX_CLIENT_ID and BOX_CLIENT_SECRET
plus "boxsync auth" for a refreshing OAuth session.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&profilesOverride, "config", "",
		"profiles file (default is profiles.yml in the boxsync config dir)")

	root.AddCommand(
		newAuthCommand(),
		newPushCommand(),
		newFetchCommand(),
		newWatchCommand(),
		newLsCommand(),
		newSearchCommand(),
		newInfoCommand(),
		newDiffCommand(),
		newVersionCommand(),
	)

	return root.ExecuteContext(ctx)
}
