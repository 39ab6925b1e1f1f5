package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate/config"
	"github.com/sagarc03/itemgate/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or verify the object tables of a database backend",
	Long: `Create the object table and its indexes for the sqlite or postgres
storage backends, then validate the resulting schema. Running it again is a
no-op.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	if !cfg.Storage.IsDatabase() {
		return fmt.Errorf("storage type %q has no schema to migrate", cfg.Storage.Type)
	}

	ctx := cmd.Context()

	db, err := database.Connect(ctx, cfg.Storage.DatabaseConfig())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err = db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	if err = db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if err = db.Validate(ctx); err != nil {
		return fmt.Errorf("validate database schema: %w", err)
	}

	slog.Info("database migration complete", "type", cfg.Storage.Type, "table", cfg.Storage.Database.Tables.Objects)
	return nil
}
