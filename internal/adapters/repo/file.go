package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"chess-puzzle-bot/internal/domain"
)

// FileStore хранит снимок реестра в JSON-файле.
type FileStore struct {
	path string
}

var _ domain.RegistryStore = (*FileStore)(nil)

// NewFileStore создаёт хранилище по пути path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path возвращает путь к файлу.
func (s *FileStore) Path() string { return s.path }

// Load читает снимок. Отсутствующий файл даёт пустой реестр.
func (s *FileStore) Load(ctx context.Context) (domain.RegistrySnapshot, error) {
	snap, _, err := s.LoadVersion(ctx)
	return snap, err
}

// LoadVersion читает снимок и сообщает версию схемы, в которой он был записан.
func (s *FileStore) LoadVersion(ctx context.Context) (domain.RegistrySnapshot, int, error) {
	if err := ctx.Err(); err != nil {
		return domain.RegistrySnapshot{}, 0, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.EmptySnapshot(), currentVersion, nil
	}
	if err != nil {
		return domain.RegistrySnapshot{}, 0, fmt.Errorf("read %s: %w", s.path, err)
	}
	return DecodeSnapshot(data)
}

// Save пишет снимок во временный файл рядом и переименовывает его поверх старого.
func (s *FileStore) Save(ctx context.Context, snapshot domain.RegistrySnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeSnapshot(snapshot)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
