package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/config"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <file1> [file2] ...",
	Short: "Import files into an owner's namespace",
	Long: `Import local files as items of one owner.

Files go through the same gateway path as uploads, so quota limits apply
and image variants are rendered. Item names are the base names of the
files; a name that already exists is overwritten.

Examples:
  # Add a single file
  itemgate add --owner-name alice --owner-id 42 /path/to/file.txt

  # Add a directory recursively
  itemgate add --owner-name alice --owner-id 42 -r /path/to/photos

  # Skip items that already exist
  itemgate add --owner-name alice --owner-id 42 --no-clobber report.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addOwnerName string
	addOwnerID   string
	addRecursive bool
	addNoClobber bool
	addQuiet     bool
)

func init() {
	addCmd.Flags().StringVar(&addOwnerName, "owner-name", "", "owner name (required)")
	addCmd.Flags().StringVar(&addOwnerID, "owner-id", "", "owner id (required)")
	addCmd.Flags().BoolVarP(&addRecursive, "recursive", "r", false, "recursively add directories")
	addCmd.Flags().BoolVarP(&addNoClobber, "no-clobber", "n", false, "skip existing items instead of overwriting")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	_ = addCmd.MarkFlagRequired("owner-name")
	_ = addCmd.MarkFlagRequired("owner-id")
	rootCmd.AddCommand(addCmd)
}

// fileEntry represents a file to be added with its source path and item name.
type fileEntry struct {
	sourcePath string
	itemName   string
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	owner := itemgate.OwnerIdentity{Name: addOwnerName, ID: addOwnerID}
	if err := owner.Validate(); err != nil {
		return err
	}

	// Collect files from all arguments
	var files []fileEntry
	seen := make(map[string]string)
	for _, arg := range args {
		entries, collectErr := collectFiles(arg, addRecursive)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		for _, e := range entries {
			if prev, dup := seen[e.itemName]; dup {
				return fmt.Errorf("item name %q is used by both %s and %s", e.itemName, prev, e.sourcePath)
			}
			seen[e.itemName] = e.sourcePath
		}
		files = append(files, entries...)
	}

	if len(files) == 0 {
		slog.Info("no files to add")
		return nil
	}

	backend, closeBackend, err := openBackend(ctx, cfg.Storage, cfg.Storage.Database.AutoMigrate)
	if err != nil {
		return err
	}
	defer closeBackend()

	store, err := newItemStore(cfg, backend)
	if err != nil {
		return err
	}

	existing := make(map[string]bool)
	if addNoClobber {
		items, listErr := store.ListItems(ctx, owner)
		if listErr != nil {
			return fmt.Errorf("list items: %w", listErr)
		}
		for _, item := range items {
			existing[item.Name] = true
		}
	}

	added := 0
	skipped := 0

	for _, entry := range files {
		if existing[entry.itemName] {
			skipped++
			if !addQuiet {
				slog.Info("skipped (exists)", "item", entry.itemName)
			}
			continue
		}

		content, readErr := os.ReadFile(entry.sourcePath)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", entry.sourcePath, readErr)
		}

		if len(content) == 0 {
			skipped++
			slog.Warn("skipped (empty)", "path", entry.sourcePath)
			continue
		}

		meta, addErr := store.AddItem(ctx, owner, entry.itemName, content)
		if addErr != nil {
			if errors.Is(addErr, itemgate.ErrQuotaExceeded) {
				slog.Error("quota exceeded, stopping", "item", entry.itemName, "added", added)
			}
			return fmt.Errorf("add %s: %w", entry.itemName, addErr)
		}

		added++
		if !addQuiet {
			slog.Info("added", "item", meta.Name, "item_type", meta.ItemType, "variants", len(meta.Variants))
		}
	}

	slog.Info("add complete", "owner", owner.String(), "added", added, "skipped", skipped)
	return nil
}

// collectFiles gathers files from a path, optionally recursively. Items
// are named by the file's base name since item names are single segments.
func collectFiles(path string, recursive bool) ([]fileEntry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []fileEntry{{sourcePath: path, itemName: filepath.Base(path)}}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to add recursively)", path)
	}

	var entries []fileEntry
	walkErr := filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if d.IsDir() {
			return nil
		}

		entries = append(entries, fileEntry{
			sourcePath: walkPath,
			itemName:   d.Name(),
		})
		return nil
	})

	if walkErr != nil {
		return nil, walkErr
	}

	return entries, nil
}
