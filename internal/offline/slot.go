// Package offline records mutations made without connectivity and replays
// them once the connection is back.
package offline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/spf13/afero"
)

// Slot is a single named value holding the serialized queue.
type Slot interface {
	// Load returns the stored bytes, or nil when the slot is empty.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	// Delete empties the slot.
	Delete(ctx context.Context) error
}

// FileSlot keeps the queue in a JSON file named after the slot key.
type FileSlot struct {
	fs   afero.Fs
	path string
}

// NewFileSlot stores the slot at dir/key.json on fs.
func NewFileSlot(fs afero.Fs, dir, key string) (*FileSlot, error) {
	if key == "" {
		return nil, errors.New("slot key is required")
	}
	if dir == "" {
		dir = "."
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create slot directory: %w", err)
	}
	return &FileSlot{fs: fs, path: path.Join(dir, key+".json")}, nil
}

func (s *FileSlot) Load(ctx context.Context) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %s: %w", s.path, err)
	}
	return data, nil
}

// Save replaces the file through a temporary sibling so a crash never leaves a partial document.
func (s *FileSlot) Save(ctx context.Context, data []byte) error {
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write slot %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace slot %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSlot) Delete(ctx context.Context) error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove slot %s: %w", s.path, err)
	}
	return nil
}
