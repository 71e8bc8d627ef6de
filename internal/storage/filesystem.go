package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSystem handles the export directory where downloaded and handed-off
// images are written: {baseDir}/{filename}.
type FileSystem struct {
	baseDir string
}

// NewFileSystem creates a new FileSystem storage, ensuring the base directory exists.
func NewFileSystem(baseDir string) (*FileSystem, error) {
	// MkdirAll creates the directory and all parents (like mkdir -p).
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	return &FileSystem{baseDir: baseDir}, nil
}

// Path returns the full filesystem path for an export file.
func (fs *FileSystem) Path(filename string) string {
	return filepath.Join(fs.baseDir, filename)
}

// Write saves an export file, creating or truncating it.
func (fs *FileSystem) Write(filename string, data []byte) error {
	if err := os.WriteFile(fs.Path(filename), data, 0644); err != nil {
		return fmt.Errorf("writing export file: %w", err)
	}
	return nil
}

// Exists checks if an export file is already on disk.
func (fs *FileSystem) Exists(filename string) bool {
	_, err := os.Stat(fs.Path(filename))
	return err == nil
}
