package clientcli

import (
	"time"

	"github.com/sagarc03/itemgate"
)

// UploadOptions configures an upload operation.
type UploadOptions struct {
	LocalPath string
	ItemName  string // optional, defaults to the file's base name
	Recursive bool
}

// UploadResult represents the result of uploading a single file.
type UploadResult struct {
	LocalPath   string                 `json:"local_path"`
	ItemName    string                 `json:"item_name"`
	ItemType    string                 `json:"item_type"`
	ContentType string                 `json:"content_type"`
	Size        int64                  `json:"size_bytes"`
	Location    string                 `json:"location"`
	Variants    []itemgate.VariantInfo `json:"variants"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Err         error                  `json:"-"` // nil on success
}

// FetchOptions configures a fetch operation.
type FetchOptions struct {
	ItemName     string
	ItemType     string // path segment only; defaults to "unknown"
	Presentation string // defaults to ORIGINAL
	Base64       bool
	LocalPath    string // empty = item name, "-" = stdout
}

// FetchResult represents the result of fetching an item.
type FetchResult struct {
	ItemName     string `json:"item_name"`
	Presentation string `json:"presentation"`
	Encoding     string `json:"encoding,omitempty"`
	LocalPath    string `json:"local_path"`
	Size         int64  `json:"size_bytes"`
}

// ListResult holds the items of one owner.
type ListResult struct {
	Items []itemgate.ItemMetadata `json:"items"`
}

// TotalSize returns the bytes used by the ORIGINAL presentations listed.
func (r *ListResult) TotalSize() int64 {
	var total int64
	for i := range r.Items {
		total += r.Items[i].Size
	}
	return total
}

// StatusResult reports a liveness probe of the gateway.
type StatusResult struct {
	Endpoint string        `json:"endpoint"`
	Status   string        `json:"status"`
	Latency  time.Duration `json:"latency_ns"`
}
