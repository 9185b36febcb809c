package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps uploaded files on local disk under a single root
// directory. Stored paths are relative to the root so the root can move
// between environments without rewriting database rows.
type FileStore struct {
	root string
}

func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

// Save writes the reader's contents under the given name and returns the
// stored relative path. The name must be a bare file name.
func (fs *FileStore) Save(name string, r io.Reader) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid file name %q", name)
	}

	full := filepath.Join(fs.root, name)
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return name, nil
}

// Remove deletes a stored file by its relative path. Removing a path that
// is already gone is not an error.
func (fs *FileStore) Remove(path string) error {
	if path == "" || path != filepath.Base(path) {
		return fmt.Errorf("invalid stored path %q", path)
	}
	if err := os.Remove(filepath.Join(fs.root, path)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Open returns a reader for a stored file.
func (fs *FileStore) Open(path string) (io.ReadCloser, error) {
	if path == "" || path != filepath.Base(path) {
		return nil, fmt.Errorf("invalid stored path %q", path)
	}
	f, err := os.Open(filepath.Join(fs.root, path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}
