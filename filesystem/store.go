// Package filesystem provides a local directory backend for itemgate.
// Objects are written atomically using temp files and renames, carry
// SHA256-based etags, and keep their metadata in JSON sidecar files under
// the .meta directory of the root.
package filesystem

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sagarc03/itemgate"
)

const metaDir = ".meta"

// Store provides file system object storage.
type Store struct {
	root *os.Root
	now  func() time.Time
}

// NewFileStorage creates a new Store with the given root directory.
// The root provides sandboxed file operations preventing path traversal.
func NewFileStorage(root *os.Root) *Store {
	return &Store{root: root, now: time.Now}
}

type sidecar struct {
	ContentType string    `json:"content_type"`
	ItemType    string    `json:"item_type"`
	ETag        string    `json:"etag"`
	Size        int64     `json:"size_bytes"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Get opens the object stored under key. Returns itemgate.ErrNotFound if the
// file does not exist.
func (s *Store) Get(ctx context.Context, key string) (itemgate.ObjectInfo, io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return itemgate.ObjectInfo{}, nil, err
	}

	if err := checkKey(key); err != nil {
		return itemgate.ObjectInfo{}, nil, err
	}

	f, err := s.root.Open(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return itemgate.ObjectInfo{}, nil, itemgate.ErrNotFound
		}
		return itemgate.ObjectInfo{}, nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return itemgate.ObjectInfo{}, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		_ = f.Close()
		return itemgate.ObjectInfo{}, nil, itemgate.ErrNotFound
	}

	return s.describe(key, stat), f, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}

// Put atomically writes content under key using a temp file and rename, then
// records meta in the sidecar. Intermediate directories are created as needed.
// The operation respects context cancellation.
func (s *Store) Put(ctx context.Context, key string, content io.Reader, meta itemgate.ObjectMeta) (itemgate.ObjectInfo, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return itemgate.ObjectInfo{}, ctxErr
	}

	if err := checkKey(key); err != nil {
		return itemgate.ObjectInfo{}, err
	}

	size, etag, err := s.writeAtomic(ctx, key, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return itemgate.ObjectInfo{}, err
	}

	if meta.ContentType == "" {
		meta.ContentType = detectContentType(key)
	}

	sc := sidecar{
		ContentType: meta.ContentType,
		ItemType:    meta.ItemType,
		ETag:        etag,
		Size:        size,
		UpdatedAt:   s.now().UTC(),
	}

	data, err := json.Marshal(sc)
	if err != nil {
		return itemgate.ObjectInfo{}, fmt.Errorf("encode metadata: %w", err)
	}

	if _, _, err := s.writeAtomic(ctx, sidecarPath(key), bytes.NewReader(data)); err != nil {
		return itemgate.ObjectInfo{}, fmt.Errorf("write metadata: %w", err)
	}

	return sc.info(key), nil
}

func (s *Store) writeAtomic(ctx context.Context, dest string, content io.Reader) (int64, string, error) {
	tmpFile := tmpFileName()
	t, createErr := s.root.Create(tmpFile)
	if createErr != nil {
		return 0, "", fmt.Errorf("could not open temp file: %w", createErr)
	}

	success := false
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			slog.Warn("failed to close tmp file", "err", closeErr)
		}
		if !success {
			if rmErr := s.root.Remove(tmpFile); rmErr != nil {
				slog.Warn("failed to remove tmp file", "err", rmErr)
			}
		}
	}()

	h := sha256.New()
	w := io.MultiWriter(h, t)

	size, err := io.Copy(w, content)
	if err != nil {
		return 0, "", fmt.Errorf("could not copy file contents: %w", err)
	}

	if err := t.Sync(); err != nil {
		return 0, "", fmt.Errorf("could not sync written file: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return 0, "", err
	}

	destDir := path.Dir(dest)
	if destDir != "." {
		if err := s.root.MkdirAll(destDir, 0o755); err != nil {
			return 0, "", fmt.Errorf("could not create intermediate directories: %w", err)
		}
	}

	if renameErr := s.root.Rename(tmpFile, dest); renameErr != nil {
		return 0, "", fmt.Errorf("failed to rename file: %w", renameErr)
	}

	success = true
	return size, hex.EncodeToString(h.Sum(nil)), nil
}

// Delete removes an object and its sidecar. Returns itemgate.ErrNotFound if
// the file does not exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := checkKey(key); err != nil {
		return err
	}

	err := s.root.Remove(key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return itemgate.ErrNotFound
		}
		return fmt.Errorf("could not delete file: %w", err)
	}

	if err := s.root.Remove(sidecarPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove metadata sidecar", "key", key, "err", err)
	}

	return nil
}

// List walks the directory containing prefix and returns every object whose
// key starts with prefix, sorted by key.
func (s *Store) List(ctx context.Context, prefix string) ([]itemgate.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := "."
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		dir = prefix[:i]
	}

	entries := []itemgate.ObjectInfo{}

	err := s.walkDir(ctx, dir, prefix, &entries)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

func (s *Store) walkDir(ctx context.Context, dir, prefix string, entries *[]itemgate.ObjectInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dirEntries, err := fs.ReadDir(s.root.FS(), dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return err
		}

		entryPath := path.Join(dir, entry.Name())

		if dir == "." && (entry.Name() == metaDir || isTmpFile(entry.Name())) {
			continue
		}

		if entry.IsDir() {
			if !strings.HasPrefix(entryPath+"/", prefix) && !strings.HasPrefix(prefix, entryPath+"/") {
				continue
			}
			if err := s.walkDir(ctx, entryPath, prefix, entries); err != nil {
				return err
			}
			continue
		}

		if !strings.HasPrefix(entryPath, prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("walk dir: %w", err)
		}

		*entries = append(*entries, s.describe(entryPath, info))
	}

	return nil
}

// describe builds ObjectInfo from the sidecar, falling back to the file itself
// for objects placed in the root by other means.
func (s *Store) describe(key string, info fs.FileInfo) itemgate.ObjectInfo {
	sc, err := s.readSidecar(key)
	if err == nil && sc.Size == info.Size() {
		return sc.info(key)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read metadata sidecar", "key", key, "err", err)
	}

	contentType := detectContentType(key)
	return itemgate.ObjectInfo{
		Key:         key,
		Size:        info.Size(),
		ContentType: contentType,
		ItemType:    itemgate.ClassifyContentType(contentType),
		UpdatedAt:   info.ModTime().UTC(),
	}
}

func (s *Store) readSidecar(key string) (sidecar, error) {
	data, err := s.root.ReadFile(sidecarPath(key))
	if err != nil {
		return sidecar{}, err
	}

	var sc sidecar
	if err := json.Unmarshal(data, &sc); err != nil {
		return sidecar{}, fmt.Errorf("decode sidecar: %w", err)
	}
	return sc, nil
}

func (sc sidecar) info(key string) itemgate.ObjectInfo {
	return itemgate.ObjectInfo{
		Key:         key,
		Size:        sc.Size,
		ETag:        sc.ETag,
		ContentType: sc.ContentType,
		ItemType:    sc.ItemType,
		UpdatedAt:   sc.UpdatedAt,
	}
}

// checkKey rejects keys that would address the store's own bookkeeping files.
func checkKey(key string) error {
	first, _, _ := strings.Cut(key, "/")
	if first == metaDir || isTmpFile(first) {
		return fmt.Errorf("reserved key %q: %w", key, itemgate.ErrForbidden)
	}
	return nil
}

func sidecarPath(key string) string {
	return path.Join(metaDir, key+".json")
}

func detectContentType(name string) string {
	ext := path.Ext(name)
	contentType := mime.TypeByExtension(ext)

	if contentType == "" {
		return "application/octet-stream"
	}

	return contentType
}

func isTmpFile(name string) bool {
	return strings.HasPrefix(name, ".t") && len(name) == 2+36
}

func tmpFileName() string {
	return fmt.Sprintf(".t%s", uuid.New().String())
}
