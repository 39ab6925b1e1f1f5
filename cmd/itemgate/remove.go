package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/config"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <item1> [item2] ...",
	Short: "Remove items from an owner's namespace",
	Long: `Delete items, with every stored presentation, from one owner.

Removal talks to the storage backend directly; the HTTP API has no delete
route.

Examples:
  # Remove a single item
  itemgate remove --owner-name alice --owner-id 42 f.txt

  # Remove every item of the owner
  itemgate remove --owner-name alice --owner-id 42 --all`,
	RunE: runRemove,
}

var (
	removeOwnerName string
	removeOwnerID   string
	removeAll       bool
	removeQuiet     bool
)

func init() {
	removeCmd.Flags().StringVar(&removeOwnerName, "owner-name", "", "owner name (required)")
	removeCmd.Flags().StringVar(&removeOwnerID, "owner-id", "", "owner id (required)")
	removeCmd.Flags().BoolVar(&removeAll, "all", false, "remove every item of the owner")
	removeCmd.Flags().BoolVarP(&removeQuiet, "quiet", "q", false, "suppress per-item output")
	_ = removeCmd.MarkFlagRequired("owner-name")
	_ = removeCmd.MarkFlagRequired("owner-id")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !removeAll {
		return errors.New("give at least one item name, or --all")
	}

	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	owner := itemgate.OwnerIdentity{Name: removeOwnerName, ID: removeOwnerID}
	if err := owner.Validate(); err != nil {
		return err
	}

	backend, closeBackend, err := openBackend(ctx, cfg.Storage, false)
	if err != nil {
		return err
	}
	defer closeBackend()

	store, err := newItemStore(cfg, backend)
	if err != nil {
		return err
	}

	names := args
	if removeAll {
		items, listErr := store.ListItems(ctx, owner)
		if listErr != nil {
			return fmt.Errorf("list items: %w", listErr)
		}
		names = names[:0:0]
		for _, item := range items {
			names = append(names, item.Name)
		}
	}

	removed := 0
	notFound := 0

	for _, name := range names {
		err := store.RemoveItem(ctx, owner, name)
		switch {
		case errors.Is(err, itemgate.ErrNotFound):
			notFound++
			slog.Warn("item not found", "item", name)
		case err != nil:
			return fmt.Errorf("remove %s: %w", name, err)
		default:
			removed++
			if !removeQuiet {
				slog.Info("removed", "item", name)
			}
		}
	}

	slog.Info("remove complete", "owner", owner.String(), "removed", removed, "not_found", notFound)
	return nil
}
