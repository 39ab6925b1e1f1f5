package itemgate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// ObjectBackend defines the interface for the remote object store that holds
// item bytes. Keys are opaque slash-separated strings built by ObjectKey.
//
// Implementations must be safe for concurrent use and must classify their
// failures: ErrNotFound for a missing key, ErrForbidden for an access denial,
// and *BackendFault carrying the backend's own status code and message for
// anything else. Unclassified errors are treated as a 500 BackendFault.
type ObjectBackend interface {
	// Put stores content under key, replacing any existing object.
	//
	// Returns:
	//   - ObjectInfo: size and ETag of the stored object
	//   - error: classified backend error
	Put(ctx context.Context, key string, content io.Reader, meta ObjectMeta) (ObjectInfo, error)

	// Get opens the object stored under key. The caller closes the reader.
	//
	// Returns:
	//   - ObjectInfo: metadata of the object
	//   - io.ReadCloser: object content
	//   - error: ErrNotFound if key doesn't exist, or another classified error
	Get(ctx context.Context, key string) (ObjectInfo, io.ReadCloser, error)

	// List returns every object whose key starts with prefix.
	// The order is stable for a given call but otherwise unspecified.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Delete removes the object stored under key.
	//
	// Returns:
	//   - error: ErrNotFound if key doesn't exist, or another classified error
	Delete(ctx context.Context, key string) error
}

// Quota bounds an owner's namespace. Zero fields are unlimited.
type Quota struct {
	MaxBytes int64
	MaxItems int
}

// StoreConfig configures an ItemStore.
type StoreConfig struct {
	Quota          Quota
	Renderer       VariantRenderer // nil disables derived presentations
	CleanupTimeout time.Duration   // Timeout for rollback deletes (default: 30s)
}

// ItemStore is the per-owner facade over an ObjectBackend. It owns the key
// scheme, quota accounting and presentation/encoding resolution.
type ItemStore struct {
	backend        ObjectBackend
	quota          Quota
	renderer       VariantRenderer
	cleanupTimeout time.Duration
	owners         keyedMutex
}

// NewItemStore creates an ItemStore over backend.
func NewItemStore(backend ObjectBackend, cfg StoreConfig) (*ItemStore, error) {
	if backend == nil {
		return nil, errors.New("new item store: backend cannot be nil")
	}

	if cfg.Quota.MaxBytes < 0 || cfg.Quota.MaxItems < 0 {
		return nil, errors.New("new item store: quota cannot be negative")
	}

	cleanupTimeout := cfg.CleanupTimeout
	if cleanupTimeout <= 0 {
		cleanupTimeout = 30 * time.Second
	}

	return &ItemStore{
		backend:        backend,
		quota:          cfg.Quota,
		renderer:       cfg.Renderer,
		cleanupTimeout: cleanupTimeout,
	}, nil
}

// write order: derived presentations first so ORIGINAL only lands once the
// rest of the set is stored.
var writeOrder = []PresentationType{PresentationPreview, PresentationPreferred, PresentationOriginal}

// AddItem stores content as the ORIGINAL presentation of itemName in owner's
// namespace, along with any presentations the renderer derives from it.
// Re-adding an existing name overwrites it.
//
// The quota check covers every presentation of the new item and excludes the
// presentations it replaces. A rejected add writes nothing. Adds for the same
// owner are serialized within this process.
func (s *ItemStore) AddItem(ctx context.Context, owner OwnerIdentity, itemName string, content []byte) (ItemMetadata, error) {
	if err := ctx.Err(); err != nil {
		return ItemMetadata{}, fmt.Errorf("add item: %w", err)
	}

	if err := owner.Validate(); err != nil {
		return ItemMetadata{}, fmt.Errorf("add item: %w", err)
	}

	if strings.TrimSpace(itemName) == "" {
		return ItemMetadata{}, fmt.Errorf("add item: %w: item name cannot be blank", ErrInvalidInput)
	}

	if !IsValidSegment(itemName) {
		return ItemMetadata{}, fmt.Errorf("add item: %w: invalid item name %q", ErrInvalidInput, itemName)
	}

	if len(content) == 0 {
		return ItemMetadata{}, fmt.Errorf("add item %s: %w: content cannot be empty", itemName, ErrInvalidInput)
	}

	contentType := DetectContentType(itemName, content)
	meta := ObjectMeta{ContentType: contentType, ItemType: ClassifyContentType(contentType)}
	payloads := s.render(ctx, itemName, contentType, content)

	unlock := s.owners.lock(owner.String())
	defer unlock()

	existing, err := s.backend.List(ctx, owner.Prefix())
	if err != nil {
		return ItemMetadata{}, fmt.Errorf("add item %s: list namespace: %w", itemName, classifyBackendError(err))
	}

	if err := s.checkQuota(owner, itemName, existing, payloads); err != nil {
		return ItemMetadata{}, fmt.Errorf("add item %s: %w", itemName, err)
	}

	previous := make(map[string]bool)
	for _, obj := range existing {
		if _, name, ok := splitObjectKey(owner, obj.Key); ok && name == itemName {
			previous[obj.Key] = true
		}
	}

	stored := make(map[PresentationType]ObjectInfo, len(payloads))
	var written []string

	for _, p := range writeOrder {
		data, ok := payloads[p]
		if !ok {
			continue
		}

		key := ObjectKey(owner, p, itemName)
		info, putErr := s.backend.Put(ctx, key, bytes.NewReader(data), meta)
		if putErr != nil {
			putErr = classifyBackendError(putErr)
			if cleanupErr := s.rollback(written); cleanupErr != nil {
				return ItemMetadata{}, fmt.Errorf("add item %s: write %s failed (%w) and cleanup failed: %w", itemName, p, putErr, cleanupErr)
			}
			return ItemMetadata{}, fmt.Errorf("add item %s: write %s: %w", itemName, p, putErr)
		}

		if !previous[key] {
			written = append(written, key)
		}
		delete(previous, key)
		info.Key = key
		stored[p] = info
	}

	// presentations of the replaced item that the new content did not produce
	for key := range previous {
		if delErr := s.backend.Delete(ctx, key); delErr != nil && !errors.Is(delErr, ErrNotFound) {
			slog.Warn("failed to remove stale presentation", "key", key, "err", delErr)
		}
	}

	return buildItemMetadata(owner, itemName, meta, stored), nil
}

func (s *ItemStore) render(ctx context.Context, itemName, contentType string, content []byte) map[PresentationType][]byte {
	payloads := map[PresentationType][]byte{PresentationOriginal: content}
	if s.renderer == nil {
		return payloads
	}

	derived, err := s.renderer.Render(ctx, contentType, content)
	if err != nil {
		slog.Warn("storing original only", "item", itemName, "err", err)
		return payloads
	}

	for p, data := range derived {
		if p != PresentationOriginal && len(data) > 0 {
			payloads[p] = data
		}
	}
	return payloads
}

func (s *ItemStore) checkQuota(owner OwnerIdentity, itemName string, existing []ObjectInfo, payloads map[PresentationType][]byte) error {
	var usedBytes int64
	items := make(map[string]struct{})

	for _, obj := range existing {
		_, name, ok := splitObjectKey(owner, obj.Key)
		if !ok || name == itemName {
			continue
		}
		usedBytes += obj.Size
		items[name] = struct{}{}
	}

	var needed int64
	for _, data := range payloads {
		needed += int64(len(data))
	}

	if s.quota.MaxBytes > 0 && usedBytes+needed > s.quota.MaxBytes {
		return fmt.Errorf("%w: %d of %d bytes used, item needs %d", ErrQuotaExceeded, usedBytes, s.quota.MaxBytes, needed)
	}

	if s.quota.MaxItems > 0 && len(items)+1 > s.quota.MaxItems {
		return fmt.Errorf("%w: %d of %d items used", ErrQuotaExceeded, len(items), s.quota.MaxItems)
	}

	return nil
}

// rollback removes keys created by a failed add. It uses a background context since
// the request context may already be cancelled.
func (s *ItemStore) rollback(written []string) error {
	if len(written) == 0 {
		return nil
	}

	cleanupCtx, cancel := context.WithTimeout(context.Background(), s.cleanupTimeout)
	defer cancel()

	var errs []error
	for _, key := range written {
		if err := s.backend.Delete(cleanupCtx, key); err != nil && !errors.Is(err, ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// GetItem returns the bytes of one presentation of an item, transformed by
// the requested encoding.
func (s *ItemStore) GetItem(ctx context.Context, req FetchRequest) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	presentation, err := ParsePresentationType(req.Presentation)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	encoding, err := ParseEncoding(req.Encoding)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if err := req.Owner.Validate(); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if !IsValidSegment(req.ItemName) {
		return nil, fmt.Errorf("get item: %w: invalid item name %q", ErrInvalidInput, req.ItemName)
	}

	key := ObjectKey(req.Owner, presentation, req.ItemName)

	_, rc, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", req.ItemName, classifyBackendError(err))
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("get item %s: read: %w", req.ItemName, classifyBackendError(err))
	}

	return encoding.Apply(data), nil
}

// ListItems returns metadata for every item in owner's namespace, ordered by
// item name.
func (s *ItemStore) ListItems(ctx context.Context, owner OwnerIdentity) ([]ItemMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	objects, err := s.backend.List(ctx, owner.Prefix())
	if err != nil {
		return nil, fmt.Errorf("list items %s: %w", owner, classifyBackendError(err))
	}

	grouped := make(map[string]map[PresentationType]ObjectInfo)
	for _, obj := range objects {
		p, name, ok := splitObjectKey(owner, obj.Key)
		if !ok {
			continue
		}
		if grouped[name] == nil {
			grouped[name] = make(map[PresentationType]ObjectInfo)
		}
		grouped[name][p] = obj
	}

	items := make([]ItemMetadata, 0, len(grouped))
	for name, stored := range grouped {
		items = append(items, buildItemMetadata(owner, name, listedMeta(name, stored), stored))
	}

	slices.SortFunc(items, func(a, b ItemMetadata) int {
		return strings.Compare(a.Name, b.Name)
	})

	return items, nil
}

// RemoveItem deletes every stored presentation of itemName from owner's
// namespace. It is an administrative operation and has no HTTP route.
func (s *ItemStore) RemoveItem(ctx context.Context, owner OwnerIdentity, itemName string) error {
	if err := owner.Validate(); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}

	if !IsValidSegment(itemName) {
		return fmt.Errorf("remove item: %w: invalid item name %q", ErrInvalidInput, itemName)
	}

	unlock := s.owners.lock(owner.String())
	defer unlock()

	objects, err := s.backend.List(ctx, owner.Prefix())
	if err != nil {
		return fmt.Errorf("remove item %s: list namespace: %w", itemName, classifyBackendError(err))
	}

	removed := 0
	for _, obj := range objects {
		if _, name, ok := splitObjectKey(owner, obj.Key); !ok || name != itemName {
			continue
		}
		if err := s.backend.Delete(ctx, obj.Key); err != nil && !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("remove item %s: %w", itemName, classifyBackendError(err))
		}
		removed++
	}

	if removed == 0 {
		return fmt.Errorf("remove item %s: %w", itemName, ErrNotFound)
	}

	return nil
}

// listedMeta recovers the item's metadata from a listing, falling back to
// the name's extension when the backend does not report it.
func listedMeta(name string, stored map[PresentationType]ObjectInfo) ObjectMeta {
	var meta ObjectMeta
	for _, p := range PresentationTypes {
		if info, ok := stored[p]; ok {
			if meta.ContentType == "" {
				meta.ContentType = info.ContentType
			}
			if meta.ItemType == "" {
				meta.ItemType = info.ItemType
			}
		}
	}

	if meta.ItemType == "" {
		ct := meta.ContentType
		if ct == "" {
			ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
		}
		meta.ItemType = ClassifyContentType(ct)
	}

	return meta
}

func buildItemMetadata(owner OwnerIdentity, name string, meta ObjectMeta, stored map[PresentationType]ObjectInfo) ItemMetadata {
	m := ItemMetadata{
		Name:        name,
		ItemType:    meta.ItemType,
		ContentType: meta.ContentType,
		Variants:    make([]VariantInfo, 0, len(stored)),
	}

	for _, p := range PresentationTypes {
		info, ok := stored[p]
		if !ok {
			continue
		}

		m.Variants = append(m.Variants, VariantInfo{
			Presentation: p,
			Size:         info.Size,
			ETag:         info.ETag,
			Location:     itemLocation(owner, m.ItemType, p, name),
		})

		if p == PresentationOriginal {
			m.Size = info.Size
		}
		if info.UpdatedAt.After(m.UpdatedAt) {
			m.UpdatedAt = info.UpdatedAt
		}
	}

	return m
}

// keyedMutex serializes work per key. Entries are dropped when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()

	return func() {
		l.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
