package keybackend

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// TokenEntry is one accepted credential in a tokens file.
type TokenEntry struct {
	Token string `json:"token" mapstructure:"token"`
	Note  string `json:"note,omitempty" mapstructure:"note"`
}

// LoadTokensFromFile loads accepted tokens from a JSON file.
// The file should contain an array of entries:
//
//	[
//	  {"token": "3f9c0a...", "note": "ci runner"},
//	  {"token": "another-token"}
//	]
//
// Blank tokens are skipped.
func LoadTokensFromFile(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path is from trusted config file
	if err != nil {
		return nil, fmt.Errorf("read tokens file: %w", err)
	}

	var entries []TokenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse tokens file: %w", err)
	}

	tokens := make([]string, 0, len(entries))
	for _, e := range entries {
		if t := strings.TrimSpace(e.Token); t != "" {
			tokens = append(tokens, t)
		}
	}

	return tokens, nil
}
