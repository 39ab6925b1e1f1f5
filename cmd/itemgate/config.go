package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/itemgate/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults, config files, environment
variables and flags have been merged. Secrets are redacted.`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

const redacted = "<redacted>"

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	out := effectiveConfig(*cfg)

	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// effectiveConfig mirrors the config file layout so the output can be
// saved and loaded back.
func effectiveConfig(cfg config.Config) map[string]any {
	tokens := make([]string, len(cfg.Auth.Static.Tokens))
	for i := range tokens {
		tokens[i] = redacted
	}

	secretKey := cfg.Storage.S3.SecretKey
	if secretKey != "" {
		secretKey = redacted
	}

	return map[string]any{
		"server": map[string]any{
			"port":             cfg.Server.Port,
			"base_path":        cfg.Server.BasePath,
			"max_upload_size":  cfg.Server.MaxUploadSize,
			"metrics":          cfg.Server.Metrics,
			"shutdown_timeout": cfg.Server.ShutdownTimeout,
		},
		"auth": map[string]any{
			"oracle": cfg.Auth.Type,
			"remote": map[string]any{
				"url":     cfg.Auth.Remote.URL,
				"timeout": cfg.Auth.Remote.Timeout,
			},
			"static": map[string]any{
				"tokens": tokens,
				"file":   cfg.Auth.Static.File,
			},
			"cache": map[string]any{
				"max_entries": cfg.Auth.Cache.MaxEntries,
				"ttl":         cfg.Auth.Cache.TTL,
			},
		},
		"storage": map[string]any{
			"type": cfg.Storage.Type,
			"path": cfg.Storage.Path,
			"s3": map[string]any{
				"bucket":     cfg.Storage.S3.Bucket,
				"region":     cfg.Storage.S3.Region,
				"endpoint":   cfg.Storage.S3.Endpoint,
				"prefix":     cfg.Storage.S3.Prefix,
				"path_style": cfg.Storage.S3.PathStyle,
				"access_key": cfg.Storage.S3.AccessKey,
				"secret_key": secretKey,
			},
			"database": map[string]any{
				"dsn":          cfg.Storage.Database.DSN,
				"tables":       map[string]any{"objects": cfg.Storage.Database.Tables.Objects},
				"auto_migrate": cfg.Storage.Database.AutoMigrate,
			},
		},
		"quota": map[string]any{
			"max_bytes": cfg.Quota.MaxBytes,
			"max_items": cfg.Quota.MaxItems,
		},
		"variants": map[string]any{
			"enabled":        cfg.Variants.Enabled,
			"preview_size":   cfg.Variants.PreviewSize,
			"preferred_size": cfg.Variants.PreferredSize,
		},
		"service": map[string]any{
			"cleanup_timeout": cfg.Service.CleanupTimeout,
		},
		"cors": map[string]any{
			"enabled":           cfg.CORS.Enabled,
			"allowed_origins":   cfg.CORS.AllowedOrigins,
			"allowed_methods":   cfg.CORS.AllowedMethods,
			"allowed_headers":   cfg.CORS.AllowedHeaders,
			"exposed_headers":   cfg.CORS.ExposedHeaders,
			"allow_credentials": cfg.CORS.AllowCredentials,
			"max_age":           cfg.CORS.MaxAge,
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
			"env":   cfg.Log.Env,
		},
	}
}
