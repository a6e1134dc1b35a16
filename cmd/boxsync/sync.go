package main

import (
	"fmt"
	"io"
	"os"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/boxsync/boxsync/box"
	"github.com/boxsync/boxsync/internal/config"
)

// syncFlags holds the flags shared by push, fetch, and watch.
type syncFlags struct {
	profile   string
	overwrite bool
	delete    bool
	dryRun    bool
	workers   int
	exclude   []string
}

var syncOpts syncFlags

// syncTarget is the fully resolved input for one sync run: which local
// directory, which remote folder, and under what policy.
type syncTarget struct {
	dir      string
	folderID string
	opts     box.PlanOptions
	exclude  []string
	workers  int
}

func addSyncFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&syncOpts.profile, "profile", "p", "", "named profile from the profiles file")
	cmd.Flags().BoolVar(&syncOpts.overwrite, "overwrite", false, "replace files modified on the target side")
	cmd.Flags().BoolVar(&syncOpts.delete, "delete", false, "remove target items missing from the source side")
	cmd.Flags().IntVar(&syncOpts.workers, "workers", 0, "parallel transfers (default from BOXSYNC_WORKERS)")
	cmd.Flags().StringSliceVar(&syncOpts.exclude, "exclude", nil, "glob patterns to skip (repeatable)")
}

func newPushCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push [dir] [folder-id]",
		Short: "Upload local changes to a Box folder",
		Long: `Push makes the Box folder look like the local directory: new local
files are uploaded and missing remote folders created. Files modified
on both sides are conflicts and are never touched. Replacing remote
modifications and removing remote extras stay off unless --overwrite
and --delete are set.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, box.Push)
		},
	}

	addSyncFlags(cmd)
	cmd.Flags().BoolVar(&syncOpts.dryRun, "dry-run", false, "show the plan without executing it")

	return cmd
}

func newFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [dir] [folder-id]",
		Short: "Download remote changes from a Box folder",
		Long: `Fetch makes the local directory look like the Box folder: new remote
files are downloaded and missing local folders created. Files modified
on both sides are conflicts and are never touched. Replacing local
modifications and removing local extras stay off unless --overwrite
and --delete are set.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, args, box.Fetch)
		},
	}

	addSyncFlags(cmd)
	cmd.Flags().BoolVar(&syncOpts.dryRun, "dry-run", false, "show the plan without executing it")

	return cmd
}

// resolveTarget merges the profile, the flags, and the positional
// arguments into one target. Precedence lowest to highest: defaults,
// profile, flags, arguments.
func resolveTarget(cmd *cobra.Command, args []string, cfg *config.Config) (syncTarget, error) {
	target := syncTarget{
		dir:      ".",
		folderID: box.RootFolderID,
		workers:  cfg.Workers,
		exclude:  syncOpts.exclude,
	}

	if syncOpts.profile != "" {
		p, err := cfg.Profile(syncOpts.profile)
		if err != nil {
			return syncTarget{}, err
		}

		target.dir = p.Dir
		target.folderID = p.FolderID
		target.opts = box.PlanOptions{Overwrite: p.Overwrite, Delete: p.Delete}
		target.exclude = p.Exclude
	}

	if cmd.Flags().Changed("overwrite") {
		target.opts.Overwrite = syncOpts.overwrite
	}

	if cmd.Flags().Changed("delete") {
		target.opts.Delete = syncOpts.delete
	}

	if cmd.Flags().Changed("exclude") {
		target.exclude = syncOpts.exclude
	}

	if syncOpts.workers > 0 {
		target.workers = syncOpts.workers
	}

	if len(args) > 0 {
		target.dir = args[0]
	}

	if len(args) > 1 {
		target.folderID = args[1]
	}

	return target, nil
}

func runSync(cmd *cobra.Command, args []string, direction box.Direction) error {
	ctx := cmd.Context()

	cfg, logger, err := loadApp()
	if err != nil {
		return err
	}

	target, err := resolveTarget(cmd, args, cfg)
	if err != nil {
		return err
	}

	// The bar is created after planning, once the transfer count is
	// known. Workers observe the assignment because the run starts
	// after it on this goroutine.
	var (
		bar      *pb.ProgressBar
		progress func(box.Outcome)
	)

	if !syncOpts.dryRun && term.IsTerminal(int(os.Stderr.Fd())) {
		progress = func(o box.Outcome) {
			if bar != nil && isTransfer(o.Action) {
				bar.Increment()
			}
		}
	}

	syncer, cleanup, err := newSyncer(ctx, cfg, logger, target, progress)
	if err != nil {
		return err
	}
	defer cleanup()

	plan, err := syncer.Plan(ctx, direction, target.folderID, target.opts)
	if err != nil {
		return err
	}

	if syncOpts.dryRun {
		renderPlan(cmd.OutOrStdout(), plan)
		return nil
	}

	if progress != nil && len(plan.Transfers) > 0 {
		bar = pb.New(len(plan.Transfers))
		bar.SetWriter(cmd.ErrOrStderr())
		bar.Start()
	}

	var result *box.SyncResult
	if direction == box.Push {
		result, err = syncer.Push(ctx, target.folderID, target.opts)
	} else {
		result, err = syncer.Fetch(ctx, target.folderID, target.opts)
	}

	if bar != nil {
		bar.Finish()
	}

	if err != nil {
		return err
	}

	renderResult(cmd.OutOrStdout(), result)

	if !result.Ok() {
		applied, _, failed := result.Counts()
		return fmt.Errorf("%d of %d actions failed", failed, applied+failed)
	}

	return nil
}

func isTransfer(kind box.ActionKind) bool {
	switch kind {
	case box.ActionUpload, box.ActionUploadVersion, box.ActionDownload:
		return true
	}

	return false
}

// renderPlan prints a dry-run plan, one line per action, in execution
// order: folder creates, transfers, deletes.
func renderPlan(w io.Writer, plan *box.SyncPlan) {
	for _, a := range plan.FolderCreates {
		fmt.Fprintf(w, "  %-20s %s\n", a.Kind, a.Path)
	}

	for _, a := range plan.Transfers {
		fmt.Fprintf(w, "  %-20s %s (%s)\n", a.Kind, a.Path, formatBytes(a.Size))
	}

	for _, a := range plan.Deletes {
		fmt.Fprintf(w, "  %-20s %s\n", a.Kind, a.Path)
	}

	for _, s := range plan.Skips {
		fmt.Fprintf(w, "  %-20s %s (%s)\n", "skip", s.Path, s.Reason)
	}

	fmt.Fprintf(w, "%d actions, %s to transfer\n", plan.ActionCount(), formatBytes(plan.TransferBytes()))
}

// renderResult prints the run summary plus anything that needs the
// user's attention: conflicts to resolve and failures to retry.
func renderResult(w io.Writer, result *box.SyncResult) {
	fmt.Fprintln(w, result.Summary())

	if conflicts := result.Conflicts(); len(conflicts) > 0 {
		fmt.Fprintln(w, "conflicted, resolve manually (see boxsync diff):")

		for _, path := range conflicts {
			fmt.Fprintf(w, "  %s\n", path)
		}
	}

	for _, o := range result.Failed() {
		fmt.Fprintf(w, "  failed %s: %v\n", o.Path, o.Err)
	}
}

func formatBytes(n int64) string {
	const unit = 1024

	if n < unit {
		return fmt.Sprintf("%d B", n)
	}

	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
