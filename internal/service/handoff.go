package service

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// filenameSanitizer collapses every run of characters that aren't safe in a
// filename into a single underscore.
var filenameSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

// exportFilename builds the download name for a rendered angle, e.g.
// "angle-studio-three_quarter.png".
func exportFilename(angleName string) string {
	slug := filenameSanitizer.ReplaceAllString(strings.ToLower(angleName), "_")
	slug = strings.Trim(slug, "_")
	if slug == "" {
		slug = "image"
	}
	return "angle-studio-" + slug + ".png"
}

// ResultDownload returns a result's current payload together with the
// sanitized filename a browser should save it under.
func (s *Studio) ResultDownload(id string) (filename string, data []byte, contentType string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.findLocked(id)
	if img == nil {
		return "", nil, "", ErrResultNotFound
	}
	return exportFilename(img.Angle.Name), img.Data, img.ContentType, nil
}

// Handoff exports a result to the shared export directory and returns the
// written filename together with the design editor URL the client should
// open. The editor has no import API, so the hand-off is exactly this pair:
// a local file the user can re-upload, plus the editor's front door.
func (s *Studio) Handoff(id string) (filename, editorURL string, err error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return "", "", ErrBusy
	}
	img := s.findLocked(id)
	if img == nil {
		s.mu.Unlock()
		return "", "", ErrResultNotFound
	}
	data := img.Data
	angle := img.Angle
	s.mu.Unlock()

	filename = exportFilename(angle.Name)
	replaced := s.exports.Exists(filename)
	if err := s.exports.Write(filename, data); err != nil {
		s.logger.Error("writing export file", zap.String("filename", filename), zap.Error(err))
		return "", "", err
	}

	s.logger.Info("result exported for editor hand-off",
		zap.String("id", id),
		zap.String("filename", filename),
		zap.Bool("replaced", replaced))
	return filename, s.editorURL, nil
}
