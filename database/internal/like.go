// Package internal holds helpers shared by the SQL object backends.
package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLikePattern escapes LIKE wildcards in s so it matches literally when
// used with ESCAPE '\'.
func EscapeLikePattern(s string) string {
	return likeEscaper.Replace(s)
}

// ETag returns the hex SHA256 of data, matching the filesystem backend.
func ETag(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
