package clientcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/itemgate"
)

// DefaultTimeout is the default HTTP client timeout.
const DefaultTimeout = 30 * time.Second

// Client performs operations against an itemgate server on behalf of one owner.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// New creates a new Client with the given config and options.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	// Apply defaults
	cfg = cfg.WithDefaults()

	c := &Client{
		config: &Config{
			Endpoint:  strings.TrimSuffix(cfg.Endpoint, "/"),
			OwnerName: cfg.OwnerName,
			OwnerID:   cfg.OwnerID,
			Token:     cfg.Token,
		},
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Status probes the gateway's liveness route. It needs no credentials.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.Endpoint+"/status", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, body)
	}

	return &StatusResult{
		Endpoint: c.config.Endpoint,
		Status:   strings.TrimSpace(string(body)),
		Latency:  time.Since(start),
	}, nil
}

// Upload uploads file(s) into the owner's namespace.
// Recursive uploads name each item by its file's base name.
func (c *Client) Upload(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	if opts.LocalPath == "" {
		return nil, fmt.Errorf("upload: %w", ErrEmptyPath)
	}
	if err := c.config.ValidateWithOwner(); err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	if opts.Recursive {
		return c.uploadRecursive(ctx, opts)
	}
	result, err := c.uploadSingle(ctx, opts.LocalPath, opts.ItemName)
	if err != nil {
		return nil, err
	}
	return []UploadResult{result}, nil
}

// uploadRecursive walks a directory and uploads all files.
func (c *Client) uploadRecursive(ctx context.Context, opts UploadOptions) ([]UploadResult, error) {
	info, err := os.Stat(opts.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	}

	if !info.IsDir() {
		// Not a directory, just upload single file
		result, uploadErr := c.uploadSingle(ctx, opts.LocalPath, opts.ItemName)
		if uploadErr != nil {
			return nil, uploadErr
		}
		return []UploadResult{result}, nil
	}

	var results []UploadResult

	walkErr := filepath.WalkDir(opts.LocalPath, func(path string, d fs.DirEntry, fileErr error) error {
		if fileErr != nil {
			return fileErr
		}

		// Check context cancellation
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		result, uploadErr := c.uploadSingle(ctx, path, "")
		if uploadErr != nil {
			result = UploadResult{
				LocalPath: path,
				ItemName:  d.Name(),
				Err:       uploadErr,
			}
		}
		results = append(results, result)
		return nil
	})

	if walkErr != nil {
		return results, fmt.Errorf("walk directory: %w", walkErr)
	}

	return results, nil
}

// uploadSingle posts one file as a multipart form.
func (c *Client) uploadSingle(ctx context.Context, localPath, itemName string) (UploadResult, error) {
	content, err := os.ReadFile(localPath) //#nosec G304 -- localPath is user-provided input
	if err != nil {
		return UploadResult{}, fmt.Errorf("read file: %w", err)
	}

	if itemName == "" {
		itemName = filepath.Base(localPath)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"user_name": c.config.OwnerName,
		"user_id":   c.config.OwnerID,
		"filename":  itemName,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return UploadResult{}, fmt.Errorf("write form: %w", err)
		}
	}

	part, err := mw.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return UploadResult{}, fmt.Errorf("write form: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return UploadResult{}, fmt.Errorf("write form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("write form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ownerURL("item", "form"), &body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return UploadResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return UploadResult{}, parseServerError(resp.StatusCode, respBody)
	}

	var meta itemgate.ItemMetadata
	if err := json.Unmarshal(respBody, &meta); err != nil {
		return UploadResult{}, fmt.Errorf("parse response: %w", err)
	}

	return UploadResult{
		LocalPath:   localPath,
		ItemName:    meta.Name,
		ItemType:    meta.ItemType,
		ContentType: meta.ContentType,
		Size:        meta.Size,
		Location:    resp.Header.Get("Location"),
		Variants:    meta.Variants,
		UpdatedAt:   meta.UpdatedAt,
	}, nil
}

// Fetch downloads one presentation of an item.
// If opts.LocalPath is "-", the content is returned via the io.ReadCloser and must be closed by the caller.
// Otherwise, the content is written to the file and the io.ReadCloser is nil.
func (c *Client) Fetch(ctx context.Context, opts FetchOptions) (*FetchResult, io.ReadCloser, error) {
	if strings.TrimSpace(opts.ItemName) == "" {
		return nil, nil, fmt.Errorf("fetch: %w", ErrEmptyItemName)
	}
	if err := c.config.ValidateWithOwner(); err != nil {
		return nil, nil, fmt.Errorf("fetch: %w", err)
	}

	itemType := opts.ItemType
	if itemType == "" {
		itemType = itemgate.ItemTypeUnknown
	}
	presentation := opts.Presentation
	if presentation == "" {
		presentation = string(itemgate.PresentationOriginal)
	}

	target := c.ownerURL(itemType, presentation, opts.ItemName)
	result := &FetchResult{
		ItemName:     opts.ItemName,
		Presentation: presentation,
	}
	if opts.Base64 {
		target += "?" + url.Values{"encoding": {"base64"}}.Encode()
		result.Encoding = "base64"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, nil, parseServerError(resp.StatusCode, body)
	}

	result.Size = resp.ContentLength

	// If stdout requested, return the body for the caller to handle
	if opts.LocalPath == "-" {
		result.LocalPath = "-"
		return result, resp.Body, nil
	}

	localPath := opts.LocalPath
	if localPath == "" {
		localPath = filepath.Base(opts.ItemName)
	}
	result.LocalPath = localPath

	// Create parent directories if needed
	dir := filepath.Dir(localPath)
	if dir != "" && dir != "." {
		if mkdirErr := os.MkdirAll(dir, 0o750); mkdirErr != nil {
			_ = resp.Body.Close()
			return nil, nil, fmt.Errorf("create directory: %w", mkdirErr)
		}
	}

	file, createErr := os.Create(localPath) //#nosec G304 -- localPath is user-provided input
	if createErr != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("create file: %w", createErr)
	}

	written, copyErr := io.Copy(file, resp.Body)
	_ = resp.Body.Close()
	if copyErr != nil {
		_ = file.Close()
		return nil, nil, fmt.Errorf("write file: %w", copyErr)
	}

	if closeErr := file.Close(); closeErr != nil {
		return nil, nil, fmt.Errorf("close file: %w", closeErr)
	}

	result.Size = written
	return result, nil, nil
}

// List returns every item in the owner's namespace.
func (c *Client) List(ctx context.Context) (*ListResult, error) {
	if err := c.config.ValidateWithOwner(); err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ownerURL("filelist"), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseServerError(resp.StatusCode, body)
	}

	var items []itemgate.ItemMetadata
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if items == nil {
		items = []itemgate.ItemMetadata{}
	}

	return &ListResult{Items: items}, nil
}

// HasUploadErrors returns true if any upload failed.
func HasUploadErrors(results []UploadResult) bool {
	for i := range results {
		if results[i].Err != nil {
			return true
		}
	}
	return false
}

// ownerURL joins path-escaped segments under the owner's namespace.
func (c *Client) ownerURL(segments ...string) string {
	parts := make([]string, 0, len(segments)+2)
	parts = append(parts, url.PathEscape(c.config.OwnerName), url.PathEscape(c.config.OwnerID))
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return c.config.Endpoint + "/" + strings.Join(parts, "/")
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
}

// parseServerError extracts error message from server response.
func parseServerError(statusCode int, body []byte) error {
	apiErr := &APIError{
		StatusCode: statusCode,
		Body:       string(body),
	}

	var resp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &resp) == nil {
		apiErr.Code = resp.Error
		apiErr.Message = resp.Message
	}

	return apiErr
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Code       string // error code from the JSON body, if any
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return "server error: " + strconv.Itoa(e.StatusCode) + " " + e.Code + ": " + e.Message
	}
	return "server error: " + strconv.Itoa(e.StatusCode) + " - " + e.Body
}

// Is reports whether target matches this error.
// It matches if target is an *APIError with the same StatusCode.
func (e *APIError) Is(target error) bool {
	var t *APIError
	ok := errors.As(target, &t)
	if !ok {
		return false
	}
	return t.StatusCode == e.StatusCode
}

// IsNotFound returns true if the error is a 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Sentinel errors for common API error conditions.
// Use errors.Is() to check for these conditions.
var (
	// ErrNotFound is returned when the requested item does not exist (404).
	ErrNotFound = &APIError{StatusCode: http.StatusNotFound}

	// ErrUnauthorized is returned when the token is missing or rejected (401).
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}

	// ErrBadRequest is returned for invalid input, unknown presentations and
	// unsupported encodings (400).
	ErrBadRequest = &APIError{StatusCode: http.StatusBadRequest}

	// ErrQuotaExceeded is returned when an upload would exceed the owner's quota (507).
	ErrQuotaExceeded = &APIError{StatusCode: http.StatusInsufficientStorage}
)
