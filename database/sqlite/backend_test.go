package sqlite_test

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"testing"

	"github.com/sagarc03/itemgate"
	"github.com/sagarc03/itemgate/database/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_PutGet(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	meta := itemgate.ObjectMeta{ContentType: "text/plain; charset=utf-8", ItemType: "text"}
	info, err := backend.Put(ctx, "U/1/ORIGINAL/a.txt", bytes.NewReader([]byte("hello")), meta)
	require.NoError(t, err)

	assert.Equal(t, "U/1/ORIGINAL/a.txt", info.Key)
	assert.Equal(t, int64(5), info.Size)
	assert.Len(t, info.ETag, 64)

	got, rc, err := backend.Get(ctx, "U/1/ORIGINAL/a.txt")
	require.NoError(t, err)
	defer rc.Close()

	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	assert.Equal(t, "hello", string(body))
	assert.Equal(t, info.ETag, got.ETag)
	assert.Equal(t, int64(5), got.Size)
	assert.Equal(t, "text/plain; charset=utf-8", got.ContentType)
	assert.Equal(t, "text", got.ItemType)
	assert.True(t, info.UpdatedAt.Equal(got.UpdatedAt))
}

func TestBackend_Put_Overwrite(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	_, err := backend.Put(ctx, "U/1/ORIGINAL/a.txt", bytes.NewReader([]byte("one")), itemgate.ObjectMeta{ContentType: "text/plain", ItemType: "text"})
	require.NoError(t, err)

	_, err = backend.Put(ctx, "U/1/ORIGINAL/a.txt", bytes.NewReader([]byte("three")), itemgate.ObjectMeta{ContentType: "text/plain", ItemType: "text"})
	require.NoError(t, err)

	_, rc, err := backend.Get(ctx, "U/1/ORIGINAL/a.txt")
	require.NoError(t, err)
	defer rc.Close()

	body, _ := io.ReadAll(rc)
	assert.Equal(t, "three", string(body))

	entries, err := backend.List(ctx, "U/1/")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestBackend_Put_ContextCanceled(t *testing.T) {
	backend := setupTestBackend(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.Put(ctx, "U/1/ORIGINAL/a.txt", bytes.NewReader([]byte("x")), itemgate.ObjectMeta{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackend_Get_NotFound(t *testing.T) {
	backend := setupTestBackend(t)

	_, rc, err := backend.Get(context.Background(), "U/1/ORIGINAL/missing.txt")

	assert.ErrorIs(t, err, itemgate.ErrNotFound)
	assert.Nil(t, rc)
}

func TestBackend_Delete(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	_, err := backend.Put(ctx, "U/1/ORIGINAL/a.txt", bytes.NewReader([]byte("x")), itemgate.ObjectMeta{})
	require.NoError(t, err)

	require.NoError(t, backend.Delete(ctx, "U/1/ORIGINAL/a.txt"))

	_, _, err = backend.Get(ctx, "U/1/ORIGINAL/a.txt")
	assert.ErrorIs(t, err, itemgate.ErrNotFound)

	err = backend.Delete(ctx, "U/1/ORIGINAL/a.txt")
	assert.ErrorIs(t, err, itemgate.ErrNotFound)
}

func TestBackend_List(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	keys := []string{
		"U/1/PREVIEW/a.png",
		"U/1/ORIGINAL/a.png",
		"u/1/ORIGINAL/lower.txt",
		"U/10/ORIGINAL/b.txt",
		"U_/1/ORIGINAL/c.txt",
		"U%/1/ORIGINAL/d.txt",
	}
	for _, key := range keys {
		_, err := backend.Put(ctx, key, bytes.NewReader([]byte(key)), itemgate.ObjectMeta{ContentType: "text/plain", ItemType: "text"})
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{
			name:   "owner prefix is case sensitive",
			prefix: "U/1/",
			want:   []string{"U/1/ORIGINAL/a.png", "U/1/PREVIEW/a.png"},
		},
		{
			name:   "lowercase owner",
			prefix: "u/1/",
			want:   []string{"u/1/ORIGINAL/lower.txt"},
		},
		{
			name:   "underscore is literal",
			prefix: "U_/",
			want:   []string{"U_/1/ORIGINAL/c.txt"},
		},
		{
			name:   "percent is literal",
			prefix: "U%/",
			want:   []string{"U%/1/ORIGINAL/d.txt"},
		},
		{
			name:   "no match",
			prefix: "V/1/",
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := backend.List(ctx, tt.prefix)
			require.NoError(t, err)

			got := make([]string, 0, len(entries))
			for _, e := range entries {
				got = append(got, e.Key)
				assert.Equal(t, int64(len(e.Key)), e.Size)
				assert.Equal(t, "text", e.ItemType)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackend_WithItemStore(t *testing.T) {
	backend := setupTestBackend(t)
	ctx := context.Background()

	items, err := itemgate.NewItemStore(backend, itemgate.StoreConfig{
		Quota: itemgate.Quota{MaxBytes: 10},
	})
	require.NoError(t, err)

	owner := itemgate.OwnerIdentity{Name: "U", ID: "1"}

	_, err = items.AddItem(ctx, owner, "a.txt", []byte("12345678"))
	require.NoError(t, err)

	_, err = items.AddItem(ctx, owner, "b.txt", []byte("123"))
	assert.ErrorIs(t, err, itemgate.ErrQuotaExceeded)

	list, err := items.ListItems(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a.txt", list[0].Name)
}

func TestNewBackend_InvalidTables(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	_, err = sqlite.NewBackend(db, itemgate.Tables{Objects: "Bad-Name"})
	assert.Error(t, err)
}
