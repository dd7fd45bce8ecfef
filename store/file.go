package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileStore writes one YAML file per port into Dir.
type FileStore struct {
	Dir string

	mu sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir. The directory is created
// on first Save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(port int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("imposter-%d.yaml", port))
}

// Save writes the snapshot, replacing any previous one for the same port.
func (s *FileStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory %s: %w", s.Dir, err)
	}
	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot for port %d: %w", snap.Descriptor.Port, err)
	}

	// Write then rename so a crash never leaves a half-written file.
	tmp := s.path(snap.Descriptor.Port) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path(snap.Descriptor.Port)); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	log.Printf("DEBUG: Saved snapshot for port %d to %s", snap.Descriptor.Port, s.path(snap.Descriptor.Port))
	return nil
}

// Load reads the snapshot for port.
func (s *FileStore) Load(_ context.Context, port int) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(port))
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, notFound(port)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read snapshot for port %d: %w", port, err)
	}
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot for port %d: %w", port, err)
	}
	return snap, nil
}

// Delete removes the snapshot for port. A missing snapshot is not an error.
func (s *FileStore) Delete(_ context.Context, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(port)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot for port %d: %w", port, err)
	}
	return nil
}
