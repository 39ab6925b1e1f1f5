package itemgate

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// OwnerIdentity names a storage namespace. Both fields are required.
type OwnerIdentity struct {
	Name string `json:"owner_name"`
	ID   string `json:"owner_id"`
}

// Validate checks that both fields are usable as key segments.
func (o OwnerIdentity) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return fmt.Errorf("%w: owner name cannot be blank", ErrInvalidInput)
	}
	if strings.TrimSpace(o.ID) == "" {
		return fmt.Errorf("%w: owner id cannot be blank", ErrInvalidInput)
	}
	if !IsValidSegment(o.Name) {
		return fmt.Errorf("%w: invalid owner name %q", ErrInvalidInput, o.Name)
	}
	if !IsValidSegment(o.ID) {
		return fmt.Errorf("%w: invalid owner id %q", ErrInvalidInput, o.ID)
	}
	return nil
}

// Prefix returns the backend key prefix of the owner's namespace, with a
// trailing slash.
func (o OwnerIdentity) Prefix() string {
	return o.Name + "/" + o.ID + "/"
}

func (o OwnerIdentity) String() string {
	return o.Name + "/" + o.ID
}

// PresentationType selects which stored representation of an item to serve.
type PresentationType string

const (
	PresentationOriginal  PresentationType = "ORIGINAL"
	PresentationPreview   PresentationType = "PREVIEW"
	PresentationPreferred PresentationType = "PREFERRED"
)

const presentationSuffix = "_PRESENTATION_TYPE"

// PresentationTypes lists every known presentation type.
var PresentationTypes = []PresentationType{PresentationOriginal, PresentationPreview, PresentationPreferred}

// ParsePresentationType resolves a presentation name case-insensitively.
// The long form ORIGINAL_PRESENTATION_TYPE is accepted as well.
func ParsePresentationType(s string) (PresentationType, error) {
	name := strings.TrimSuffix(strings.ToUpper(strings.TrimSpace(s)), presentationSuffix)

	switch PresentationType(name) {
	case PresentationOriginal:
		return PresentationOriginal, nil
	case PresentationPreview:
		return PresentationPreview, nil
	case PresentationPreferred:
		return PresentationPreferred, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownPresentation, s)
	}
}

// Encoding is a transform applied to stored bytes before transmission.
type Encoding string

const (
	EncodingIdentity Encoding = "IDENTITY"
	EncodingBase64   Encoding = "BASE64"
)

// ParseEncoding normalizes s to upper case and resolves it. Blank, NONE, NULL
// and IDENTITY all mean identity.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE", "NULL", string(EncodingIdentity):
		return EncodingIdentity, nil
	case string(EncodingBase64):
		return EncodingBase64, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEncoding, s)
	}
}

// Apply returns data transformed by the encoding.
func (e Encoding) Apply(data []byte) []byte {
	switch e {
	case EncodingBase64:
		out := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
		base64.StdEncoding.Encode(out, data)
		return out
	default:
		return data
	}
}

// Item type labels reported in listings.
const (
	ItemTypeImage   = "image"
	ItemTypeText    = "text"
	ItemTypeUnknown = "unknown"
)

// ClassifyContentType maps a MIME type onto an item type label.
func ClassifyContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}

	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return ItemTypeImage
	case strings.HasPrefix(mediaType, "text/"):
		return ItemTypeText
	default:
		return ItemTypeUnknown
	}
}

// DetectContentType guesses the content type of an item from its name,
// falling back to sniffing the first bytes of the content.
func DetectContentType(name string, content []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return sniffContentType(content)
}

// ObjectKey returns the backend key for one presentation of an item.
func ObjectKey(owner OwnerIdentity, presentation PresentationType, itemName string) string {
	return owner.Prefix() + string(presentation) + "/" + itemName
}

// splitObjectKey is the inverse of ObjectKey for keys under owner's prefix.
func splitObjectKey(owner OwnerIdentity, key string) (PresentationType, string, bool) {
	rest, ok := strings.CutPrefix(key, owner.Prefix())
	if !ok {
		return "", "", false
	}

	p, name, ok := strings.Cut(rest, "/")
	if !ok || name == "" {
		return "", "", false
	}

	presentation, err := ParsePresentationType(p)
	if err != nil || string(presentation) != p {
		return "", "", false
	}

	return presentation, name, true
}

// ObjectMeta is the metadata a backend stores alongside an object.
type ObjectMeta struct {
	ContentType string
	ItemType    string
}

// ObjectInfo describes a stored object. Backends that cannot report
// ContentType or ItemType from a listing leave them blank.
type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
	ItemType    string
	UpdatedAt   time.Time
}

// VariantInfo describes one stored presentation of an item.
type VariantInfo struct {
	Presentation PresentationType `json:"presentation"`
	Size         int64            `json:"size_bytes"`
	ETag         string           `json:"etag,omitempty"`
	Location     string           `json:"location"`
}

// ItemMetadata is what listings and uploads report about an item.
type ItemMetadata struct {
	Name        string        `json:"item_name"`
	ItemType    string        `json:"item_type"`
	ContentType string        `json:"content_type,omitempty"`
	Size        int64         `json:"size_bytes"`
	Variants    []VariantInfo `json:"variants"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// TotalSize returns the bytes used by all variants of the item.
func (m ItemMetadata) TotalSize() int64 {
	var total int64
	for _, v := range m.Variants {
		total += v.Size
	}
	return total
}

// Variant returns the variant of the given presentation, if stored.
func (m ItemMetadata) Variant(p PresentationType) (VariantInfo, bool) {
	for _, v := range m.Variants {
		if v.Presentation == p {
			return v, true
		}
	}
	return VariantInfo{}, false
}

// FetchRequest identifies the bytes to serve for a fetch.
// ItemType is passed through from the request and does not affect lookup.
type FetchRequest struct {
	Owner        OwnerIdentity
	ItemType     string
	ItemName     string
	Presentation string
	Encoding     string
}

// itemLocation is the relative URL path of one presentation of an item.
func itemLocation(owner OwnerIdentity, itemType string, p PresentationType, name string) string {
	return owner.Prefix() + itemType + "/" + string(p) + "/" + name
}

// Tables holds configurable table names for database-backed object storage.
type Tables struct {
	Objects string `mapstructure:"objects"`
}

var validTableNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidTableName checks if a table name is valid (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidTableName(name string) bool {
	return validTableNameRegex.MatchString(name) && len(name) <= 63
}

// Validate checks that all required table names are set and valid.
func (t Tables) Validate() error {
	if t.Objects == "" {
		return errors.New("validate tables: objects table name cannot be empty")
	}

	if !IsValidTableName(t.Objects) {
		return fmt.Errorf("validate tables: invalid objects table name: %s (must match ^[a-z_][a-z0-9_]*$ and be <= 63 chars)", t.Objects)
	}

	return nil
}
