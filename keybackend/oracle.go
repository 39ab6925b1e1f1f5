package keybackend

import (
	"fmt"
	"time"

	"github.com/sagarc03/itemgate"
)

// RemoteConfig configures a RemoteOracle.
type RemoteConfig struct {
	URL     string `mapstructure:"url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// StaticConfig holds accepted tokens for a MapOracle.
type StaticConfig struct {
	Tokens []string `mapstructure:"tokens"` // Inline tokens from config
	File   string   `mapstructure:"file"`   // Path to JSON file containing token entries
}

// Config selects and configures an oracle.
type Config struct {
	Type   string       `mapstructure:"oracle"`
	Remote RemoteConfig `mapstructure:"remote"`
	Static StaticConfig `mapstructure:"static"`
}

// NewOracle creates the CredentialOracle described by cfg. For the static
// oracle, inline and file tokens are merged.
func NewOracle(cfg Config) (itemgate.CredentialOracle, error) {
	switch cfg.Type {
	case "remote":
		return NewRemoteOracle(cfg.Remote.URL, time.Duration(cfg.Remote.Timeout)*time.Second)
	case "static":
		tokens := append([]string(nil), cfg.Static.Tokens...)
		if cfg.Static.File != "" {
			fileTokens, err := LoadTokensFromFile(cfg.Static.File)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, fileTokens...)
		}
		return NewMapOracle(tokens), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOracle, cfg.Type)
	}
}
