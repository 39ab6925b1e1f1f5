// Package config provides configuration loading and validation for itemgate.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (ITEMGATE_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with ITEMGATE_ prefix:
//   - server.port → ITEMGATE_SERVER_PORT
//   - storage.type → ITEMGATE_STORAGE_TYPE
//   - auth.static.tokens → ITEMGATE_AUTH_STATIC_TOKENS (comma separated)
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, base_path, max_upload_size, metrics and shutdown_timeout
//   - Auth: oracle (remote or static), its settings, and the validation cache
//   - Storage: backend type (filesystem, s3, sqlite, postgres) and its settings
//   - Quota: per-owner byte and item limits
//   - Variants: image preview and preferred renditions
//   - Service: cleanup_timeout for upload rollback
//   - CORS: cross-origin resource sharing settings
//   - Log: level and env (dev or prod)
//
// # Validation
//
// Field ranges are checked with struct tags. Settings that depend on the
// selected oracle or storage backend, such as remote.url or s3.bucket, are
// checked by struct-level validators.
package config
