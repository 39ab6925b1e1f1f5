package clientcli_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/clientcli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "tok-123"

func newTestClient(t *testing.T, endpoint string) *clientcli.Client {
	t.Helper()
	client, err := clientcli.New(&clientcli.Config{
		Endpoint:  endpoint,
		OwnerName: "alice",
		OwnerID:   "42",
		Token:     testToken,
	})
	require.NoError(t, err)
	return client
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := clientcli.New(nil)
		assert.ErrorIs(t, err, clientcli.ErrConfigRequired)
	})

	t.Run("empty endpoint uses default", func(t *testing.T) {
		client, err := clientcli.New(&clientcli.Config{})
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}

func TestClient_Status(t *testing.T) {
	t.Run("trailing slash removed", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/file_api/status", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, "OK")
		}))
		defer server.Close()

		client, err := clientcli.New(&clientcli.Config{Endpoint: server.URL + "/file_api/"})
		require.NoError(t, err)

		result, err := client.Status(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "OK", result.Status)
		assert.Equal(t, server.URL+"/file_api", result.Endpoint)
	})

	t.Run("server down", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).Status(context.Background())

		var apiErr *clientcli.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	})
}

func TestClient_Upload(t *testing.T) {
	t.Run("successful upload", func(t *testing.T) {
		updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/alice/42/item/form", r.URL.Path)
			assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))

			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "alice", r.FormValue("user_name"))
			assert.Equal(t, "42", r.FormValue("user_id"))
			assert.Equal(t, "notes.txt", r.FormValue("filename"))

			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer func() { _ = file.Close() }()
			assert.Equal(t, "local.txt", header.Filename)
			content, err := io.ReadAll(file)
			require.NoError(t, err)
			assert.Equal(t, "test content", string(content))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Location", "/file_api/alice/42/text/ORIGINAL/notes.txt")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(itemgate.ItemMetadata{
				Name:        "notes.txt",
				ItemType:    itemgate.ItemTypeText,
				ContentType: "text/plain; charset=utf-8",
				Size:        12,
				Variants: []itemgate.VariantInfo{
					{Presentation: itemgate.PresentationOriginal, Size: 12, Location: "alice/42/text/ORIGINAL/notes.txt"},
				},
				UpdatedAt: updated,
			})
		}))
		defer server.Close()

		localPath := filepath.Join(t.TempDir(), "local.txt")
		require.NoError(t, os.WriteFile(localPath, []byte("test content"), 0o600))

		results, err := newTestClient(t, server.URL).Upload(context.Background(), clientcli.UploadOptions{
			LocalPath: localPath,
			ItemName:  "notes.txt",
		})
		require.NoError(t, err)
		require.Len(t, results, 1)

		r := results[0]
		require.NoError(t, r.Err)
		assert.Equal(t, localPath, r.LocalPath)
		assert.Equal(t, "notes.txt", r.ItemName)
		assert.Equal(t, itemgate.ItemTypeText, r.ItemType)
		assert.Equal(t, int64(12), r.Size)
		assert.Equal(t, "/file_api/alice/42/text/ORIGINAL/notes.txt", r.Location)
		assert.Len(t, r.Variants, 1)
		assert.True(t, updated.Equal(r.UpdatedAt))
	})

	t.Run("quota exceeded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSONError(w, http.StatusInsufficientStorage, "quota_exceeded", "Storage quota exceeded")
		}))
		defer server.Close()

		localPath := filepath.Join(t.TempDir(), "big.bin")
		require.NoError(t, os.WriteFile(localPath, []byte("data"), 0o600))

		_, err := newTestClient(t, server.URL).Upload(context.Background(), clientcli.UploadOptions{LocalPath: localPath})
		assert.ErrorIs(t, err, clientcli.ErrQuotaExceeded)

		var apiErr *clientcli.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "quota_exceeded", apiErr.Code)
		assert.Equal(t, "Storage quota exceeded", apiErr.Message)
	})

	t.Run("recursive upload", func(t *testing.T) {
		var (
			mu    sync.Mutex
			names []string
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			name := r.FormValue("filename")
			mu.Lock()
			names = append(names, name)
			mu.Unlock()

			if name == "bad.txt" {
				writeJSONError(w, http.StatusBadRequest, "invalid_filename", "Invalid filename")
				return
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(itemgate.ItemMetadata{Name: name, ItemType: itemgate.ItemTypeText})
		}))
		defer server.Close()

		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o750))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o600))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "bad.txt"), []byte("b"), 0o600))

		results, err := newTestClient(t, server.URL).Upload(context.Background(), clientcli.UploadOptions{
			LocalPath: dir,
			Recursive: true,
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.True(t, clientcli.HasUploadErrors(results))

		sort.Strings(names)
		assert.Equal(t, []string{"a.txt", "bad.txt"}, names)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			cfg     clientcli.Config
			opts    clientcli.UploadOptions
			wantErr error
		}{
			{name: "empty path", cfg: clientcli.Config{Token: "t", OwnerName: "U", OwnerID: "1"}, wantErr: clientcli.ErrEmptyPath},
			{name: "no token", cfg: clientcli.Config{OwnerName: "U", OwnerID: "1"}, opts: clientcli.UploadOptions{LocalPath: "x"}, wantErr: clientcli.ErrTokenRequired},
			{name: "no owner", cfg: clientcli.Config{Token: "t"}, opts: clientcli.UploadOptions{LocalPath: "x"}, wantErr: clientcli.ErrOwnerRequired},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				client, err := clientcli.New(&tt.cfg)
				require.NoError(t, err)

				_, err = client.Upload(context.Background(), tt.opts)
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})
}

func TestClient_Fetch(t *testing.T) {
	newFetchServer := func(t *testing.T) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
			switch r.URL.EscapedPath() {
			case "/alice/42/unknown/ORIGINAL/notes.txt":
				if r.URL.Query().Get("encoding") == "base64" {
					_, _ = io.WriteString(w, "aGVsbG8=")
					return
				}
				_, _ = io.WriteString(w, "hello")
			case "/alice/42/image/PREVIEW/my%20photo.png":
				_, _ = io.WriteString(w, "preview-bytes")
			default:
				writeJSONError(w, http.StatusNotFound, "not_found", "Item not found")
			}
		}))
	}

	t.Run("to file", func(t *testing.T) {
		server := newFetchServer(t)
		defer server.Close()

		localPath := filepath.Join(t.TempDir(), "out", "notes.txt")
		result, body, err := newTestClient(t, server.URL).Fetch(context.Background(), clientcli.FetchOptions{
			ItemName:  "notes.txt",
			LocalPath: localPath,
		})
		require.NoError(t, err)
		assert.Nil(t, body)
		assert.Equal(t, int64(5), result.Size)
		assert.Equal(t, "ORIGINAL", result.Presentation)

		content, err := os.ReadFile(localPath)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
	})

	t.Run("to stdout", func(t *testing.T) {
		server := newFetchServer(t)
		defer server.Close()

		result, body, err := newTestClient(t, server.URL).Fetch(context.Background(), clientcli.FetchOptions{
			ItemName:     "my photo.png",
			ItemType:     itemgate.ItemTypeImage,
			Presentation: "PREVIEW",
			LocalPath:    "-",
		})
		require.NoError(t, err)
		require.NotNil(t, body)
		defer func() { _ = body.Close() }()

		content, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "preview-bytes", string(content))
		assert.Equal(t, "-", result.LocalPath)
		assert.Equal(t, "PREVIEW", result.Presentation)
	})

	t.Run("base64", func(t *testing.T) {
		server := newFetchServer(t)
		defer server.Close()

		result, body, err := newTestClient(t, server.URL).Fetch(context.Background(), clientcli.FetchOptions{
			ItemName:  "notes.txt",
			Base64:    true,
			LocalPath: "-",
		})
		require.NoError(t, err)
		defer func() { _ = body.Close() }()

		content, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, "aGVsbG8=", string(content))
		assert.Equal(t, "base64", result.Encoding)
	})

	t.Run("not found", func(t *testing.T) {
		server := newFetchServer(t)
		defer server.Close()

		_, _, err := newTestClient(t, server.URL).Fetch(context.Background(), clientcli.FetchOptions{
			ItemName:  "missing.txt",
			LocalPath: "-",
		})
		assert.ErrorIs(t, err, clientcli.ErrNotFound)

		var apiErr *clientcli.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsNotFound())
	})

	t.Run("empty item name", func(t *testing.T) {
		_, _, err := newTestClient(t, "http://unused").Fetch(context.Background(), clientcli.FetchOptions{ItemName: " "})
		assert.ErrorIs(t, err, clientcli.ErrEmptyItemName)
	})
}

func TestClient_List(t *testing.T) {
	t.Run("items", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/alice/42/filelist", r.URL.Path)
			assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode([]itemgate.ItemMetadata{
				{Name: "a.png", ItemType: itemgate.ItemTypeImage, Size: 100},
				{Name: "b.txt", ItemType: itemgate.ItemTypeText, Size: 20},
			})
		}))
		defer server.Close()

		result, err := newTestClient(t, server.URL).List(context.Background())
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "a.png", result.Items[0].Name)
		assert.Equal(t, int64(120), result.TotalSize())
	})

	t.Run("null body is empty", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "null")
		}))
		defer server.Close()

		result, err := newTestClient(t, server.URL).List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, result.Items)
		assert.Empty(t, result.Items)
	})

	t.Run("unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid access token")
		}))
		defer server.Close()

		_, err := newTestClient(t, server.URL).List(context.Background())
		assert.ErrorIs(t, err, clientcli.ErrUnauthorized)
		assert.NotErrorIs(t, err, clientcli.ErrNotFound)
	})
}

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *clientcli.APIError
		expected string
	}{
		{
			name:     "with message",
			err:      &clientcli.APIError{StatusCode: 404, Code: "not_found", Message: "Item not found"},
			expected: "server error: 404 not_found: Item not found",
		},
		{
			name:     "raw body",
			err:      &clientcli.APIError{StatusCode: 502, Body: "bad gateway"},
			expected: "server error: 502 - bad gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestHasUploadErrors(t *testing.T) {
	assert.False(t, clientcli.HasUploadErrors(nil))
	assert.False(t, clientcli.HasUploadErrors([]clientcli.UploadResult{{ItemName: "a"}}))
	assert.True(t, clientcli.HasUploadErrors([]clientcli.UploadResult{{ItemName: "a"}, {Err: errors.New("boom")}}))
}
