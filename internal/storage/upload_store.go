package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// UploadStore holds uploaded images between the upload and the end of a request
type UploadStore interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Remove(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
	// Location describes where name lives, for logs.
	Location(name string) string
}

type localStore struct {
	basePath string
}

// NewLocalStore creates the upload directory if needed and returns a store
// backed by it. Files are kept under their given name; an existing file with
// the same name is overwritten.
func NewLocalStore(basePath string) (UploadStore, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &localStore{basePath: basePath}, nil
}

func (s *localStore) path(name string) string {
	return filepath.Join(s.basePath, filepath.Base(name))
}

func (s *localStore) Save(_ context.Context, name string, data io.Reader) error {
	file, err := os.Create(s.path(name))
	if err != nil {
		return err
	}

	if _, err := io.Copy(file, data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (s *localStore) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(s.path(name))
}

func (s *localStore) Remove(_ context.Context, name string) error {
	return os.Remove(s.path(name))
}

func (s *localStore) Exists(_ context.Context, name string) (bool, error) {
	_, err := os.Stat(s.path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *localStore) Location(name string) string {
	return s.path(name)
}
