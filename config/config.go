package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database"
	itemhttp "github.com/sagarc03/itemgate/http"
	"github.com/sagarc03/itemgate/keybackend"
	"github.com/sagarc03/itemgate/s3store"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Storage backend types.
const (
	StorageFilesystem = "filesystem"
	StorageS3         = "s3"
	StorageSQLite     = "sqlite"
	StoragePostgres   = "postgres"
)

// Config is the root configuration struct for itemgate.
type Config struct {
	Server   ServerConfig        `mapstructure:"server"`
	Auth     AuthConfig          `mapstructure:"auth"`
	Storage  StorageConfig       `mapstructure:"storage"`
	Quota    QuotaConfig         `mapstructure:"quota"`
	Variants VariantsConfig      `mapstructure:"variants"`
	Service  ServiceConfig       `mapstructure:"service"`
	CORS     itemhttp.CORSConfig `mapstructure:"cors"`
	Log      LogConfig           `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	BasePath        string `mapstructure:"base_path"`
	MaxUploadSize   int64  `mapstructure:"max_upload_size" validate:"min=0"`
	Metrics         bool   `mapstructure:"metrics"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"min=1"` // seconds
}

// AuthConfig selects the credential oracle and sizes the validation cache.
type AuthConfig struct {
	keybackend.Config `mapstructure:",squash"`
	Cache             CacheConfig `mapstructure:"cache"`
}

// CacheConfig sizes the credential validation cache.
type CacheConfig struct {
	MaxEntries int `mapstructure:"max_entries" validate:"min=1"`
	TTL        int `mapstructure:"ttl" validate:"min=1"` // seconds
}

// StorageConfig selects the object backend.
type StorageConfig struct {
	Type     string         `mapstructure:"type" validate:"required,oneof=filesystem s3 sqlite postgres"`
	Path     string         `mapstructure:"path"`
	S3       s3store.Config `mapstructure:"s3"`
	Database DatabaseConfig `mapstructure:"database"`
}

// DatabaseConfig configures the sqlite and postgres backends.
type DatabaseConfig struct {
	DSN         string          `mapstructure:"dsn"`
	Tables      itemgate.Tables `mapstructure:"tables"`
	AutoMigrate bool            `mapstructure:"auto_migrate"`
}

// IsDatabase reports whether the storage type is database-backed.
func (s StorageConfig) IsDatabase() bool {
	return s.Type == StorageSQLite || s.Type == StoragePostgres
}

// DatabaseConfig returns the connection config for database-backed storage.
func (s StorageConfig) DatabaseConfig() database.Config {
	return database.Config{
		Type:   s.Type,
		DSN:    s.Database.DSN,
		Tables: s.Database.Tables,
	}
}

// QuotaConfig bounds each owner's namespace. Zero means unlimited.
type QuotaConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" validate:"min=0"`
	MaxItems int   `mapstructure:"max_items" validate:"min=0"`
}

// VariantsConfig controls derived image presentations.
type VariantsConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	PreviewSize   int  `mapstructure:"preview_size" validate:"min=1"`
	PreferredSize int  `mapstructure:"preferred_size" validate:"min=1"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	CleanupTimeout int `mapstructure:"cleanup_timeout" validate:"min=1"` // seconds
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Env   string `mapstructure:"env" validate:"required,oneof=dev development prod production"`
}

// IsProduction reports whether the JSON log handler should be used.
func (l LogConfig) IsProduction() bool {
	return l.Env == "prod" || l.Env == "production"
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"port":         "server.port",
	"base-path":    "server.base_path",
	"oracle":       "auth.oracle",
	"oracle-url":   "auth.remote.url",
	"tokens-file":  "auth.static.file",
	"storage-type": "storage.type",
	"storage-path": "storage.path",
	"db-dsn":       "storage.database.dsn",
	"s3-bucket":    "storage.s3.bucket",
	"log-level":    "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key
// that may come from the environment needs a default so AutomaticEnv can
// resolve it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 4173)
	v.SetDefault("server.base_path", "/file_api")
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.metrics", false)
	v.SetDefault("server.shutdown_timeout", 30)

	v.SetDefault("auth.oracle", "static")
	v.SetDefault("auth.remote.url", "")
	v.SetDefault("auth.remote.timeout", 5)
	v.SetDefault("auth.static.tokens", []string{})
	v.SetDefault("auth.static.file", "")
	v.SetDefault("auth.cache.max_entries", 10000)
	v.SetDefault("auth.cache.ttl", 86400)

	v.SetDefault("storage.type", StorageFilesystem)
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.prefix", "")
	v.SetDefault("storage.s3.path_style", false)
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.database.dsn", "itemgate.db")
	v.SetDefault("storage.database.tables.objects", "itemgate_objects")
	v.SetDefault("storage.database.auto_migrate", true)

	v.SetDefault("quota.max_bytes", 200<<20)
	v.SetDefault("quota.max_items", 0)

	v.SetDefault("variants.enabled", true)
	v.SetDefault("variants.preview_size", 200)
	v.SetDefault("variants.preferred_size", 1024)

	v.SetDefault("service.cleanup_timeout", 30) // seconds

	v.SetDefault("cors.enabled", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.env", "dev")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("ITEMGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	if err := newValidator().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterStructValidation(validateAuth, AuthConfig{})
	validate.RegisterStructValidation(validateStorage, StorageConfig{})
	return validate
}

// validateAuth checks the settings required by the selected oracle.
func validateAuth(sl validator.StructLevel) {
	auth := sl.Current().Interface().(AuthConfig)

	switch auth.Type {
	case "remote":
		if strings.TrimSpace(auth.Remote.URL) == "" {
			sl.ReportError(auth.Remote.URL, "url", "URL", "required_for_remote", "")
		}
		if auth.Remote.Timeout < 1 {
			sl.ReportError(auth.Remote.Timeout, "timeout", "Timeout", "min", "1")
		}
	case "static":
	default:
		sl.ReportError(auth.Type, "oracle", "Type", "oneof", "remote static")
	}
}

// validateStorage checks the settings required by the selected backend.
func validateStorage(sl validator.StructLevel) {
	storage := sl.Current().Interface().(StorageConfig)

	switch storage.Type {
	case StorageFilesystem:
		if strings.TrimSpace(storage.Path) == "" {
			sl.ReportError(storage.Path, "path", "Path", "required_for_filesystem", "")
		}
	case StorageS3:
		if strings.TrimSpace(storage.S3.Bucket) == "" {
			sl.ReportError(storage.S3.Bucket, "bucket", "Bucket", "required_for_s3", "")
		}
	case StorageSQLite, StoragePostgres:
		if strings.TrimSpace(storage.Database.DSN) == "" {
			sl.ReportError(storage.Database.DSN, "dsn", "DSN", "required_for_database", "")
		}
		if err := storage.Database.Tables.Validate(); err != nil {
			sl.ReportError(storage.Database.Tables.Objects, "objects", "Objects", "table_name", "")
		}
	}
}
