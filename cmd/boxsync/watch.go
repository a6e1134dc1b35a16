package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/boxsync/boxsync/box"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir] [folder-id]",
		Short: "Push automatically as local files change",
		Long: `Watch pushes the directory each time a burst of local changes settles.
It runs until interrupted. Policy flags work like push: conflicts are
never touched, and overwrite/delete stay off unless enabled.`,
		Args: cobra.MaximumNArgs(2),
		RunE: runWatch,
	}

	addSyncFlags(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadApp()
	if err != nil {
		return err
	}

	target, err := resolveTarget(cmd, args, cfg)
	if err != nil {
		return err
	}

	syncer, cleanup, err := newSyncer(ctx, cfg, logger, target, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher := box.NewWatcher(syncer, target.folderID, target.opts)

	// Cancellation via ctrl-C is the normal way out.
	if err := watcher.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
