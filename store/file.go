package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const (
	saveDirMode     = 0o700
	saveFileMode    = 0o600
	tempFilePattern = ".slot-*.tmp"
	saveFileSuffix  = ".json"
)

// FileStore keeps one file per key under dir. Writes go to a temp file that
// is renamed over the target, so a crash never leaves a half-written slot.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("store: file dir is required")
	}
	if err := os.MkdirAll(dir, saveDirMode); err != nil {
		return nil, fmt.Errorf("create save directory: %w", err)
	}
	return &FileStore{dir: filepath.Clean(dir)}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, url.PathEscape(key)+saveFileSuffix)
}

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := s.path(key)

	tempFile, err := os.CreateTemp(s.dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp save file: %w", err)
	}
	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(value); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp save file: %w", err)
	}
	if err := tempFile.Chmod(saveFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp save file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp save file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp save file: %w", err)
	}
	if err := os.Rename(tempName, target); err != nil {
		return fmt.Errorf("replace save file: %w", err)
	}
	cleanup = false
	return nil
}

func (s *FileStore) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
