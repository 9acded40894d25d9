package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore implements FileStore on the local filesystem.
type LocalStore struct {
	dir       string
	publicURL string
}

func NewLocal(dir, publicURL string) *LocalStore {
	return &LocalStore{dir: dir, publicURL: strings.TrimRight(publicURL, "/")}
}

func (s *LocalStore) Upload(_ context.Context, data []byte, name, mimeType, folder string) (Object, error) {
	key := path.Join(folder, name)
	full := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, fmt.Errorf("storage: create dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return Object{}, fmt.Errorf("storage: write %s: %w", key, err)
	}
	return Object{
		Key:  key,
		URL:  s.publicURL + "/" + key,
		Size: int64(len(data)),
	}, nil
}

func (s *LocalStore) Fetch(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("storage: fetch %s: %w", key, err)
	}
	return data, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

var _ FileStore = (*LocalStore)(nil)
