package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists image bytes under a single directory. Writes are
// two-phase: bytes land under a temporary name first, and the file is only
// renamed to its final name once the metadata row referencing it exists. A
// crash between the stages leaves a stray .tmp file, never a metadata row
// pointing at a missing image.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the backing directory, used for static serving.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the full path for a stored filename.
func (s *FileStore) Path(filename string) string {
	return filepath.Join(s.dir, filename)
}

// PendingFile is a staged write awaiting Commit or Discard.
type PendingFile struct {
	tmpPath   string
	finalPath string
}

// Stage writes data under a temporary name next to the final location.
func (s *FileStore) Stage(filename string, data []byte) (*PendingFile, error) {
	finalPath := s.Path(filename)
	tmpPath := finalPath + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write image file: %w", err)
	}

	return &PendingFile{tmpPath: tmpPath, finalPath: finalPath}, nil
}

// Commit moves the staged file to its final name.
func (p *PendingFile) Commit() error {
	return os.Rename(p.tmpPath, p.finalPath)
}

// Discard removes the staged file. Safe to call after Commit.
func (p *PendingFile) Discard() {
	os.Remove(p.tmpPath)
}

// Read returns the bytes of a stored file.
func (s *FileStore) Read(filename string) ([]byte, error) {
	return os.ReadFile(s.Path(filename))
}

// Remove deletes a stored file.
func (s *FileStore) Remove(filename string) error {
	return os.Remove(s.Path(filename))
}

// Exists reports whether a stored file is present on disk.
func (s *FileStore) Exists(filename string) bool {
	_, err := os.Stat(s.Path(filename))
	return err == nil
}
