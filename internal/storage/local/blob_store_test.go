// Package local_test tests the local filesystem blob store.
package local_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/billboard-charts/internal/storage"
	"github.com/JakeFAU/billboard-charts/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "data", "charts")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "testfile")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})
}

func TestPutAndGetObject(t *testing.T) {
	tempDir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: tempDir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		uri, err := store.PutObject(ctx, "hot_100.csv", "text/csv", bytes.NewReader([]byte("date,rank\n")))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, "hot_100.csv"), uri)

		got, err := store.GetObject(ctx, "hot_100.csv")
		require.NoError(t, err)
		assert.Equal(t, "date,rank\n", string(got))
	})

	t.Run("OverwriteReplacesContent", func(t *testing.T) {
		_, err := store.PutObject(ctx, "a/b/store.csv", "text/csv", bytes.NewReader([]byte("first version")))
		require.NoError(t, err)
		_, err = store.PutObject(ctx, "a/b/store.csv", "text/csv", bytes.NewReader([]byte("second")))
		require.NoError(t, err)

		got, err := store.GetObject(ctx, "a/b/store.csv")
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))

		entries, err := os.ReadDir(filepath.Join(tempDir, "a", "b"))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temp files are renamed away")
	})

	t.Run("MissingObject", func(t *testing.T) {
		_, err := store.GetObject(ctx, "nope.csv")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(ctx, "", "text/plain", bytes.NewReader([]byte("data")))
		assert.Error(t, err)
	})

	t.Run("PathTraversal", func(t *testing.T) {
		_, err := store.PutObject(ctx, "../escape.csv", "text/plain", bytes.NewReader([]byte("data")))
		assert.Error(t, err)
		_, err = store.GetObject(ctx, "../../etc/passwd")
		assert.Error(t, err)
	})
}

func TestPutObjectIsWorldReadable(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), "hot_100.csv", "text/csv", bytes.NewReader([]byte("date,rank\n")))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "hot_100.csv"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
