package store

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"burnlink/internal/lifecycle"
)

// Dir implements lifecycle.BlobStore on a local directory. It is the
// default backend when no S3 endpoint is configured, and what the unit
// tests run against.
type Dir struct {
	root string
}

var _ lifecycle.BlobStore = (*Dir)(nil)

// NewDir creates the root directory if needed.
func NewDir(root string) (*Dir, error) {
	if root == "" {
		return nil, fmt.Errorf("empty storage directory")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return &Dir{root: root}, nil
}

// resolve maps a slash-separated storage path onto the root, refusing
// anything that would escape it.
func (d *Dir) resolve(path string) (string, error) {
	if path == "" || strings.Contains(path, "..") || strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("invalid storage path: %q", path)
	}
	return filepath.Join(d.root, filepath.FromSlash(path)), nil
}

func (d *Dir) Write(_ context.Context, path string, data []byte) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o700); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o600)
}

func (d *Dir) Read(_ context.Context, path string) ([]byte, error) {
	full, err := d.resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// Delete is idempotent: a missing file is not an error.
func (d *Dir) Delete(_ context.Context, path string) error {
	full, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *Dir) List(_ context.Context) ([]lifecycle.BlobInfo, error) {
	var out []lifecycle.BlobInfo
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		out = append(out, lifecycle.BlobInfo{Path: filepath.ToSlash(rel), ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
