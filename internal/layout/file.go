package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileBackend stores slots as one JSON object in a file. Writes go to a
// temporary file in the same directory, which then replaces the file.
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend creates a FileBackend at path. The file and its directory
// are created on the first Save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file path.
func (f *FileBackend) Path() string {
	return f.path
}

// Load implements Backend.
func (f *FileBackend) Load(_ context.Context, slot string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return nil, false, err
	}
	data, ok := slots[slot]
	return data, ok, nil
}

// Save implements Backend.
func (f *FileBackend) Save(_ context.Context, slot string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.read()
	if err != nil {
		return err
	}
	slots[slot] = json.RawMessage(data)

	out, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("encoding layout file: %w", err)
	}
	return f.write(out)
}

func (f *FileBackend) read() (map[string]json.RawMessage, error) {
	slots := make(map[string]json.RawMessage)

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return slots, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading layout file: %w", err)
	}
	if err := json.Unmarshal(data, &slots); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, err)
	}
	return slots, nil
}

func (f *FileBackend) write(data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating layout directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".layout-*.json")
	if err != nil {
		return fmt.Errorf("creating temp layout file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing layout file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing layout file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing layout file: %w", err)
	}
	return nil
}
