package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_PutAndURI(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store, err := NewLocal(dir)
	require.NoError(t, err)

	uri, err := store.Put(context.Background(), "renders/check_icon_m.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.Join(dir, "renders/check_icon_m.png"), uri)

	data, err := os.ReadFile(filepath.Join(dir, "renders", "check_icon_m.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestLocal_CreatesBaseDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "artifacts")

	_, err := NewLocal(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocal_RejectsEscapingNames(t *testing.T) {
	t.Parallel()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside.png", "image/png", []byte("x"))
	assert.ErrorContains(t, err, "escapes base directory")

	_, err = store.Put(context.Background(), "  ", "image/png", []byte("x"))
	assert.ErrorContains(t, err, "object name is required")
}

func TestLocal_RequiresBaseDir(t *testing.T) {
	t.Parallel()
	_, err := NewLocal("   ")
	assert.Error(t, err)
}

func TestMemory_PutGet(t *testing.T) {
	t.Parallel()
	store := NewMemory()

	uri, err := store.Put(context.Background(), "a/b.png", "image/png", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "mem://a/b.png", uri)

	data, ok := store.Get("a/b.png")
	require.True(t, ok)
	assert.Equal(t, []byte("data"), data)
	assert.Equal(t, 1, store.Len())

	_, ok = store.Get("missing")
	assert.False(t, ok)
	require.NoError(t, store.Close())
}

func TestNoOp(t *testing.T) {
	t.Parallel()
	var store NoOp

	uri, err := store.Put(context.Background(), "anything", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Empty(t, uri)
	assert.NoError(t, store.Close())
}
