// Package storage abstracts the attachment file backend. The metadata layer
// never touches the filesystem directly; it only speaks to a Store.
package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Store persists and removes attachment payloads by relative path.
type Store interface {
	Save(ctx context.Context, path string, contents io.Reader) error
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

// LocalStore writes files under a root directory on local disk.
type LocalStore struct {
	root string
}

// NewLocalStore builds a disk-backed store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

func (s *LocalStore) Save(_ context.Context, path string, contents io.Reader) error {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	f, err := os.Create(full)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, contents); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *LocalStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, filepath.FromSlash(path)))
}

func (s *LocalStore) Remove(_ context.Context, path string) error {
	return os.Remove(filepath.Join(s.root, filepath.FromSlash(path)))
}
