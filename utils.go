package itemgate

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"
)

const maxSegmentLength = 255

// IsValidSegment validates a single key segment: an owner name, an owner id
// or an item name. It checks that the segment:
//   - is not blank and not "." or ".."
//   - does not contain "/" or "\"
//   - is valid UTF-8 and at most 255 bytes
//   - does not contain null bytes, control characters (< 0x20) or DEL (0x7f)
//   - does not start or end with whitespace
func IsValidSegment(s string) bool {
	if strings.TrimSpace(s) == "" {
		return false
	}

	if s == "." || s == ".." {
		return false
	}

	if len(s) > maxSegmentLength {
		return false
	}

	if strings.ContainsAny(s, `/\`) {
		return false
	}

	if !utf8.ValidString(s) {
		return false
	}

	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}

	first, _ := utf8.DecodeRuneInString(s)
	last, _ := utf8.DecodeLastRuneInString(s)

	return !unicode.IsSpace(first) && !unicode.IsSpace(last)
}

// ResolveItemName picks the caller-supplied name when non-blank and falls
// back to the base name of the submitted filename.
func ResolveItemName(requested, submitted string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}

	submitted = strings.TrimSpace(submitted)
	if i := strings.LastIndexAny(submitted, `/\`); i >= 0 {
		submitted = submitted[i+1:]
	}
	return submitted
}

func sniffContentType(content []byte) string {
	return http.DetectContentType(content)
}
