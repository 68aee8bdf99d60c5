package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// fileNames сохраняет раскладку файлов, с которой бот работал изначально.
var fileNames = map[string]string{
	CollectionUsers:    "users.json",
	CollectionChannels: "channels.json",
	CollectionCatalog:  "movies.json",
}

// FileBackend хранит каждую коллекцию отдельным JSON-файлом в каталоге.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend создаёт каталог при необходимости.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("создание каталога %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

func (f *FileBackend) path(collection string) string {
	name, ok := fileNames[collection]
	if !ok {
		name = collection + ".json"
	}
	return filepath.Join(f.dir, name)
}

// Get реализует Backend.
func (f *FileBackend) Get(_ context.Context, collection string) ([]byte, error) {
	body, err := os.ReadFile(f.path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return body, err
}

// Put реализует Backend. Файл заменяется атомарно через временный файл.
func (f *FileBackend) Put(_ context.Context, collection string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target := f.path(collection)
	tmp, err := os.CreateTemp(f.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}
