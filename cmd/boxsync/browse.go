package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/boxsync/boxsync/box"
)

const listPageSize = 500

func newLsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ls [folder-id]",
		Short: "List a Box folder's contents",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLs,
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, _, err := loadApp()
	if err != nil {
		return err
	}

	tokens, err := tokenSource(ctx, cfg)
	if err != nil {
		return err
	}

	client := newClient(cfg, tokens)

	folderID := box.RootFolderID
	if len(args) > 0 {
		folderID = args[0]
	}

	for offset := int64(0); ; {
		page, err := client.FolderItems(ctx, folderID, offset, listPageSize)
		if err != nil {
			return err
		}

		printItems(cmd.OutOrStdout(), page.Entries)

		offset += int64(len(page.Entries))
		if offset >= page.TotalCount || len(page.Entries) == 0 {
			break
		}
	}

	return nil
}

func newSearchCommand() *cobra.Command {
	var opts struct {
		itemType string
		folders  []string
		exts     []string
		limit    int64
	}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search file and folder names and content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, _, err := loadApp()
			if err != nil {
				return err
			}

			tokens, err := tokenSource(ctx, cfg)
			if err != nil {
				return err
			}

			client := newClient(cfg, tokens)

			results, err := client.Search(ctx, args[0], box.SearchOptions{
				Type:            opts.itemType,
				AncestorFolders: opts.folders,
				FileExtensions:  opts.exts,
				Limit:           opts.limit,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printItems(out, results.Entries)
			fmt.Fprintf(out, "%d of %d results\n", len(results.Entries), results.TotalCount)

			return nil
		},
	}

	cmd.Flags().StringVar(&opts.itemType, "type", "", `restrict to "file" or "folder"`)
	cmd.Flags().StringSliceVar(&opts.folders, "folder", nil, "restrict to these folder subtrees (repeatable)")
	cmd.Flags().StringSliceVar(&opts.exts, "ext", nil, "restrict to these file extensions (repeatable)")
	cmd.Flags().Int64Var(&opts.limit, "limit", 30, "maximum results")

	return cmd
}

func newInfoCommand() *cobra.Command {
	var file bool

	cmd := &cobra.Command{
		Use:   "info [id]",
		Short: "Show metadata for a folder or file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, _, err := loadApp()
			if err != nil {
				return err
			}

			tokens, err := tokenSource(ctx, cfg)
			if err != nil {
				return err
			}

			client := newClient(cfg, tokens)
			out := cmd.OutOrStdout()

			id := box.RootFolderID
			if len(args) > 0 {
				id = args[0]
			}

			if file {
				f, err := client.FileInfo(ctx, id)
				if err != nil {
					return err
				}

				printFileInfo(out, f)

				return nil
			}

			folder, err := client.FolderInfo(ctx, id)
			if err != nil {
				return err
			}

			printFolderInfo(out, folder)

			return nil
		},
	}

	cmd.Flags().BoolVar(&file, "file", false, "treat the id as a file id")

	return cmd
}

// printItems writes one line per item: kind, id, size, modified, name.
// Folders have no size of their own and print a dash.
func printItems(w io.Writer, items []box.Item) {
	for _, item := range items {
		size := "-"
		if item.Type == "file" {
			size = formatBytes(item.Size)
		}

		modified := "-"
		if !item.ModifiedAt.IsZero() {
			modified = item.ModifiedAt.Format("2006-01-02 15:04")
		}

		fmt.Fprintf(w, "%-6s %-12s %10s  %-16s  %s\n", item.Type, item.ID, size, modified, item.Name)
	}
}

func printFileInfo(w io.Writer, f *box.File) {
	fmt.Fprintf(w, "file     %s\n", f.Name)
	fmt.Fprintf(w, "id       %s\n", f.ID)
	fmt.Fprintf(w, "size     %s\n", formatBytes(f.Size))
	fmt.Fprintf(w, "sha1     %s\n", f.SHA1)

	if f.FileVersion != nil {
		fmt.Fprintf(w, "version  %s\n", f.FileVersion.ID)
	}

	if !f.ContentModifiedAt.IsZero() {
		fmt.Fprintf(w, "modified %s\n", f.ContentModifiedAt.Format(time.RFC3339))
	}

	if f.Description != "" {
		fmt.Fprintf(w, "desc     %s\n", f.Description)
	}
}

func printFolderInfo(w io.Writer, f *box.Folder) {
	fmt.Fprintf(w, "folder   %s\n", f.Name)
	fmt.Fprintf(w, "id       %s\n", f.ID)

	if f.Parent != nil {
		fmt.Fprintf(w, "parent   %s (%s)\n", f.Parent.Name, f.Parent.ID)
	}

	if !f.ModifiedAt.IsZero() {
		fmt.Fprintf(w, "modified %s\n", f.ModifiedAt.Format(time.RFC3339))
	}

	if f.ItemCollection != nil {
		fmt.Fprintf(w, "items    %d\n", f.ItemCollection.TotalCount)
	}

	if f.Description != "" {
		fmt.Fprintf(w, "desc     %s\n", f.Description)
	}
}
