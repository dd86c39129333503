package ids

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	// DefaultFilename is the registry name inside the keys directory.
	DefaultFilename = "ids.json"

	// fileMode is used when the registry is written.
	fileMode = 0o600
)

// Repository defines persistence operations for extension ids.
type Repository interface {
	Get(ctx context.Context, name string) (string, error)
	Put(ctx context.Context, name, id string) error
}

// FileRepository stores ids as an indented JSON object on disk.
type FileRepository struct {
	// path is the filesystem location of the JSON registry.
	path string
	// mu serializes read-modify-write cycles.
	mu sync.Mutex
}

// ErrNotFound is returned when no id is registered for a name.
var ErrNotFound = errors.New("extension id not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Get returns the id registered for name.
func (r *FileRepository) Get(_ context.Context, name string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	registry, err := r.read()
	if err != nil {
		return "", err
	}

	id, ok := registry[name]
	if !ok {
		return "", ErrNotFound
	}

	return id, nil
}

// Put registers id for name and rewrites the file.
func (r *FileRepository) Put(_ context.Context, name, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	registry, err := r.read()
	if err != nil {
		return err
	}

	registry[name] = id

	return r.write(registry)
}

func (r *FileRepository) read() (map[string]string, error) {
	registry := make(map[string]string)

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return registry, nil
		}

		return nil, fmt.Errorf("read ids file: %w", err)
	}

	if len(bytes.TrimSpace(contents)) == 0 {
		return registry, nil
	}

	if err = json.Unmarshal(contents, &registry); err != nil {
		return nil, fmt.Errorf("decode ids file: %w", err)
	}

	return registry, nil
}

func (r *FileRepository) write(registry map[string]string) error {
	data, err := json.MarshalIndent(registry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ids: %w", err)
	}

	if err = os.WriteFile(r.path, append(data, '\n'), fileMode); err != nil {
		return fmt.Errorf("write ids file: %w", err)
	}

	return nil
}
