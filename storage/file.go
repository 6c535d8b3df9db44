package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const storeFileName = "events.json"

// FileStore persists the snapshot as a single pretty-printed JSON file.
// Writes go to a temp file first and are renamed into place so a crashed
// write never truncates the previous state. The filesystem is injected so
// tests run against an in-memory fs.
type FileStore struct {
	fs   afero.Fs
	path string
}

// NewFileStore creates a file store inside the given directory, creating
// the directory if needed.
func NewFileStore(fs afero.Fs, dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage directory not provided")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{fs: fs, path: filepath.Join(dir, storeFileName)}, nil
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the persisted snapshot. A missing or empty file yields an
// empty snapshot, not an error.
func (s *FileStore) Load() (Snapshot, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read events file: %w", err)
	}
	if len(data) == 0 {
		return Snapshot{}, nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode events file: %w", err)
	}
	return snap, nil
}

// Save atomically replaces the persisted snapshot.
func (s *FileStore) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode events: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write events temp file: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace events file: %w", err)
	}
	return nil
}
