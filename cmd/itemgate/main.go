package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/itemgate/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "itemgate",
	Short:   "Access-controlled item storage gateway",
	Long: `itemgate stores, lists and serves items in per-owner namespaces.
Every request carries an access token that is checked against a credential
oracle, and items are kept in a pluggable object backend (filesystem, S3,
SQLite or PostgreSQL).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg.Log)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable; later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("storage-type", "", "storage backend: filesystem, s3, sqlite, postgres (env: ITEMGATE_STORAGE_TYPE)")
	rootCmd.PersistentFlags().String("storage-path", "", "filesystem storage root (env: ITEMGATE_STORAGE_PATH)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: ITEMGATE_STORAGE_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("s3-bucket", "", "S3 bucket (env: ITEMGATE_STORAGE_S3_BUCKET)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: ITEMGATE_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
