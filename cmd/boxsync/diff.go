package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <path> [dir] [folder-id]",
		Short: "Show both sides of a conflicted file",
		Long: `Diff downloads the remote copy of one file and renders it against the
local copy at the same relative path. Insertions are text only present
locally, deletions text only present remotely. It previews conflicts;
resolving them is up to you.`,
		Args: cobra.RangeArgs(1, 3),
		RunE: runDiff,
	}

	cmd.Flags().StringVarP(&syncOpts.profile, "profile", "p", "", "named profile from the profiles file")

	return cmd
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, err := loadApp()
	if err != nil {
		return err
	}

	target, err := resolveTarget(cmd, args[1:], cfg)
	if err != nil {
		return err
	}

	syncer, cleanup, err := newSyncer(ctx, cfg, logger, target, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	rendered, err := syncer.ConflictDiff(ctx, target.folderID, args[0])
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), rendered)

	return nil
}
