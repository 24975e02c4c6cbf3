package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalBackend writes objects below a root directory on disk, one
// subdirectory per upload kind.
type LocalBackend struct {
	root string
}

// NewLocalBackend creates the root and its known subdirectories.
func NewLocalBackend(root string) (*LocalBackend, error) {
	for dir := range knownDirs {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &LocalBackend{root: root}, nil
}

func (l *LocalBackend) path(key string) string {
	return filepath.Join(l.root, filepath.FromSlash(key))
}

func (l *LocalBackend) Put(_ context.Context, key string, data []byte, _ string) error {
	p := l.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, p)
}

func (l *LocalBackend) Get(_ context.Context, key string) (io.ReadCloser, int64, error) {
	f, err := os.Open(l.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

func (l *LocalBackend) Remove(_ context.Context, key string) error {
	if err := os.Remove(l.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
