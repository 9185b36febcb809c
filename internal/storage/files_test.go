package storage

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSaveAndOpen(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "images"))
	require.NoError(t, err)

	path, err := fs.Save("photo.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", path)

	r, err := fs.Open(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Save("../escape.jpg", strings.NewReader("x"))
	assert.Error(t, err)

	_, err = fs.Save(".hidden", strings.NewReader("x"))
	assert.Error(t, err)

	assert.Error(t, fs.Remove("../etc/passwd"))
}

func TestFileStoreSaveRefusesOverwrite(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Save("a.png", strings.NewReader("one"))
	require.NoError(t, err)

	_, err = fs.Save("a.png", strings.NewReader("two"))
	assert.Error(t, err)
}

func TestFileStoreRemove(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFileStore(root)
	require.NoError(t, err)

	path, err := fs.Save("gone.png", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, fs.Remove(path))
	_, err = os.Stat(filepath.Join(root, path))
	assert.True(t, os.IsNotExist(err))

	// idempotent
	assert.NoError(t, fs.Remove(path))
}
