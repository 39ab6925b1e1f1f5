package clientcli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the default gateway URL, including the base path.
const DefaultEndpoint = "http://localhost:4173/file_api"

// Profile holds configuration for a single gateway profile.
type Profile struct {
	Name      string `yaml:"name"`
	Endpoint  string `yaml:"endpoint"`
	OwnerName string `yaml:"owner_name,omitempty"`
	OwnerID   string `yaml:"owner_id,omitempty"`
	Token     string `yaml:"token,omitempty"`
	Default   bool   `yaml:"default,omitempty"`
}

// ConfigFile holds the full config file structure with multiple profiles.
type ConfigFile struct {
	Profiles []Profile `yaml:"profiles"`
}

func (c *ConfigFile) indexOf(name string) int {
	return slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Name == name })
}

// GetProfile returns the profile by name, or the default profile when name
// is empty.
func (c *ConfigFile) GetProfile(name string) (*Profile, error) {
	if name == "" {
		return c.GetDefaultProfile()
	}
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}
	if i := c.indexOf(name); i >= 0 {
		return &c.Profiles[i], nil
	}
	return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
}

// GetDefaultProfile returns the profile marked default, falling back to the
// first one.
func (c *ConfigFile) GetDefaultProfile() (*Profile, error) {
	if len(c.Profiles) == 0 {
		return nil, ErrNoProfiles
	}
	if i := slices.IndexFunc(c.Profiles, func(p Profile) bool { return p.Default }); i >= 0 {
		return &c.Profiles[i], nil
	}
	return &c.Profiles[0], nil
}

// AddProfile appends p. Names are unique; use UpdateProfile to change one.
func (c *ConfigFile) AddProfile(p Profile) error {
	if c.indexOf(p.Name) >= 0 {
		return fmt.Errorf("%w: %s", ErrProfileExists, p.Name)
	}
	c.Profiles = append(c.Profiles, p)
	return nil
}

// UpdateProfile replaces the profile with p's name.
func (c *ConfigFile) UpdateProfile(p Profile) error {
	i := c.indexOf(p.Name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, p.Name)
	}
	c.Profiles[i] = p
	return nil
}

// RemoveProfile removes a profile by name.
func (c *ConfigFile) RemoveProfile(name string) error {
	i := c.indexOf(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	c.Profiles = slices.Delete(c.Profiles, i, i+1)
	return nil
}

// SetDefault marks name as the only default profile.
func (c *ConfigFile) SetDefault(name string) error {
	if c.indexOf(name) < 0 {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	for i := range c.Profiles {
		c.Profiles[i].Default = c.Profiles[i].Name == name
	}
	return nil
}

// ProfileNames returns a list of all profile names.
func (c *ConfigFile) ProfileNames() []string {
	names := make([]string, len(c.Profiles))
	for i := range c.Profiles {
		names[i] = c.Profiles[i].Name
	}
	return names
}

// Save writes the profiles to path with owner-only permissions, creating
// the parent directory when needed.
func (c *ConfigFile) Save(path string) error {
	cleanPath := filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// LoadConfigFile loads the config file from the specified path.
func LoadConfigFile(path string) (*ConfigFile, error) {
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) //#nosec G304 -- path is user-provided config file
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg ConfigFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return &cfg, nil
}

// DefaultConfigPath returns the default config file path (~/.itemgate/config.yaml).
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".itemgate", "config.yaml")
}

// Config holds resolved client configuration for a single gateway and owner.
// This is what the Client uses after profile resolution.
type Config struct {
	Endpoint  string
	OwnerName string
	OwnerID   string
	Token     string
}

// WithDefaults returns a copy of the config with default values applied.
// If Endpoint is empty, it defaults to DefaultEndpoint.
func (c *Config) WithDefaults() *Config {
	cfg := *c
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	return &cfg
}

// ValidateWithAuth checks that an access token is set.
func (c *Config) ValidateWithAuth() error {
	if strings.TrimSpace(c.Token) == "" {
		return ErrTokenRequired
	}
	return nil
}

// ValidateWithOwner checks that a token and both owner fields are set, as
// every item operation needs.
func (c *Config) ValidateWithOwner() error {
	if err := c.ValidateWithAuth(); err != nil {
		return err
	}
	if strings.TrimSpace(c.OwnerName) == "" || strings.TrimSpace(c.OwnerID) == "" {
		return ErrOwnerRequired
	}
	return nil
}

// ConfigFromProfile creates a Config from a Profile.
func ConfigFromProfile(p *Profile) *Config {
	if p == nil {
		return &Config{}
	}
	return &Config{
		Endpoint:  p.Endpoint,
		OwnerName: p.OwnerName,
		OwnerID:   p.OwnerID,
		Token:     p.Token,
	}
}

// ConfigFromEnv loads config from environment variables.
func ConfigFromEnv() *Config {
	return &Config{
		Endpoint:  os.Getenv("ITEMGATE_ENDPOINT"),
		OwnerName: os.Getenv("ITEMGATE_OWNER_NAME"),
		OwnerID:   os.Getenv("ITEMGATE_OWNER_ID"),
		Token:     os.Getenv("ITEMGATE_TOKEN"),
	}
}

// ProfileFromEnv returns the profile name from ITEMGATE_PROFILE environment variable.
func ProfileFromEnv() string {
	return os.Getenv("ITEMGATE_PROFILE")
}

// ConfigPathFromEnv returns the config file path from ITEMGATE_CLI_CONFIG
// environment variable.
func ConfigPathFromEnv() string {
	return os.Getenv("ITEMGATE_CLI_CONFIG")
}

// MergeConfig merges multiple configs, with later configs taking precedence.
// Empty strings in later configs do not override non-empty values in earlier configs.
func MergeConfig(configs ...*Config) *Config {
	result := &Config{}
	for _, cfg := range configs {
		if cfg == nil {
			continue
		}
		override(&result.Endpoint, cfg.Endpoint)
		override(&result.OwnerName, cfg.OwnerName)
		override(&result.OwnerID, cfg.OwnerID)
		override(&result.Token, cfg.Token)
	}
	return result
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
