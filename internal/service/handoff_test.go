package service

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestExportFilename(t *testing.T) {
	cases := []struct {
		angle string
		want  string
	}{
		{"front", "angle-studio-front.png"},
		{"three-quarter", "angle-studio-three_quarter.png"},
		{"Low Hero!", "angle-studio-low_hero.png"},
		{"---", "angle-studio-image.png"},
	}
	for _, tc := range cases {
		if got := exportFilename(tc.angle); got != tc.want {
			t.Errorf("exportFilename(%q) = %q, want %q", tc.angle, got, tc.want)
		}
	}
}

func TestHandoffWritesExportAndReturnsEditorURL(t *testing.T) {
	remote := &fakeRemote{}
	s, _ := newTestStudio(t, remote, 10)
	mustUpload(t, s)
	id := generateOne(t, s, "three-quarter")

	filename, editorURL, err := s.Handoff(id)
	if err != nil {
		t.Fatalf("Handoff: %v", err)
	}
	if filename != "angle-studio-three_quarter.png" {
		t.Fatalf("filename = %q", filename)
	}
	if editorURL != "https://www.canva.com/" {
		t.Fatalf("editorURL = %q", editorURL)
	}

	data, err := os.ReadFile(s.exports.Path(filename))
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	current, _, _ := s.ResultImage(id, false)
	if string(data) != string(current) {
		t.Fatal("export file does not match the result payload")
	}
}

func TestHandoffReplacesExistingExport(t *testing.T) {
	remote := &fakeRemote{}
	s, _ := newTestStudio(t, remote, 10)
	mustUpload(t, s)
	id := generateOne(t, s, "front")

	filename, _, err := s.Handoff(id)
	if err != nil {
		t.Fatalf("first Handoff: %v", err)
	}
	if !s.exports.Exists(filename) {
		t.Fatalf("export %q not on disk after first hand-off", filename)
	}

	// Upscaling changes the payload. A second hand-off of the same angle
	// reuses the filename and must overwrite the stale file.
	if err := s.Upscale(context.Background(), id); err != nil {
		t.Fatalf("Upscale: %v", err)
	}
	again, _, err := s.Handoff(id)
	if err != nil {
		t.Fatalf("second Handoff: %v", err)
	}
	if again != filename {
		t.Fatalf("filename changed from %q to %q", filename, again)
	}

	data, err := os.ReadFile(s.exports.Path(filename))
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	current, _, _ := s.ResultImage(id, false)
	if string(data) != string(current) {
		t.Fatal("export file was not overwritten with the upscaled payload")
	}
}

func TestHandoffUnknownResult(t *testing.T) {
	s, _ := newTestStudio(t, &fakeRemote{}, 10)
	mustUpload(t, s)

	if _, _, err := s.Handoff("missing"); !errors.Is(err, ErrResultNotFound) {
		t.Fatalf("got %v, want ErrResultNotFound", err)
	}
}

func TestHandoffRefusedWhileBusy(t *testing.T) {
	s, _ := newTestStudio(t, &fakeRemote{}, 10)
	mustUpload(t, s)
	id := generateOne(t, s, "front")

	s.mu.Lock()
	s.busy = true
	s.mu.Unlock()

	if _, _, err := s.Handoff(id); !errors.Is(err, ErrBusy) {
		t.Fatalf("got %v, want ErrBusy", err)
	}
}
