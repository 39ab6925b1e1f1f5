package keybackend_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sagarc03/itemgate/keybackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTokensFromFile_ValidJSON(t *testing.T) {
	t.Parallel()

	content := `[
		{"token": "3f9c0a7e", "note": "ci runner"},
		{"token": "another-token"}
	]`

	path := writeTestFile(t, content)

	tokens, err := keybackend.LoadTokensFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"3f9c0a7e", "another-token"}, tokens)
}

func TestLoadTokensFromFile_EmptyArray(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, `[]`)

	tokens, err := keybackend.LoadTokensFromFile(path)
	require.NoError(t, err)

	assert.Empty(t, tokens)
}

func TestLoadTokensFromFile_SkipsBlankTokens(t *testing.T) {
	t.Parallel()

	content := `[
		{"token": ""},
		{"token": "   "},
		{"note": "no token"},
		{"token": "valid"}
	]`

	path := writeTestFile(t, content)

	tokens, err := keybackend.LoadTokensFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"valid"}, tokens)
}

func TestLoadTokensFromFile_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := keybackend.LoadTokensFromFile("/nonexistent/path/tokens.json")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "read tokens file")
}

func TestLoadTokensFromFile_InvalidJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "not json",
			content: "this is not json",
		},
		{
			name:    "json object instead of array",
			content: `{"token": "tok"}`,
		},
		{
			name:    "malformed json",
			content: `[{"token": "tok"`,
		},
		{
			name:    "array of strings",
			content: `["tok1", "tok2"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeTestFile(t, tt.content)

			_, err := keybackend.LoadTokensFromFile(path)

			assert.Error(t, err)
			assert.Contains(t, err.Error(), "parse tokens file")
		})
	}
}

// writeTestFile is a test helper that creates a temporary file with the given content
func writeTestFile(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "tokens.json")

	err := os.WriteFile(path, []byte(content), 0o600)
	require.NoError(t, err)

	return path
}
