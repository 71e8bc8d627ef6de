package storage

import (
	"testing"
)

func TestFileSystem_WriteAndExists(t *testing.T) {
	tmpDir := t.TempDir()
	fs, err := NewFileSystem(tmpDir)
	if err != nil {
		t.Fatalf("creating filesystem: %v", err)
	}

	// Write a fake PNG (just some bytes for testing)
	fakeImage := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	if err := fs.Write("angle-studio-front.png", fakeImage); err != nil {
		t.Fatalf("writing export: %v", err)
	}

	if !fs.Exists("angle-studio-front.png") {
		t.Error("expected export to exist after write")
	}
}

func TestFileSystem_Exists_NotFound(t *testing.T) {
	tmpDir := t.TempDir()
	fs, err := NewFileSystem(tmpDir)
	if err != nil {
		t.Fatalf("creating filesystem: %v", err)
	}

	if fs.Exists("nope.png") {
		t.Error("expected non-existent export to return false")
	}
}

func TestFileSystem_Path(t *testing.T) {
	fs := &FileSystem{baseDir: "/data/exports"}
	path := fs.Path("angle-studio-front.png")
	expected := "/data/exports/angle-studio-front.png"
	if path != expected {
		t.Errorf("expected path %s, got %s", expected, path)
	}
}
