package service

import (
	"fmt"

	"github.com/h2non/bimg"
)

// thumbnailPixels is the gallery rendition size.
const thumbnailPixels = 256

// ImageProcessor validates uploads and builds gallery thumbnails.
// It uses bimg (Go bindings for libvips) — a C library that's extremely fast
// at image manipulation. The trade-off: requires libvips as a system dependency.
type ImageProcessor struct{}

// NewImageProcessor creates a new ImageProcessor.
func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{}
}

// Validate checks that the payload really is an image (by content, not by
// the client-supplied type) and returns its MIME type.
func (p *ImageProcessor) Validate(data []byte) (string, error) {
	imgType := bimg.DetermineImageType(data)
	if imgType == bimg.UNKNOWN || !bimg.IsTypeSupported(imgType) {
		return "", fmt.Errorf("unsupported or non-image payload")
	}
	return "image/" + bimg.ImageTypeName(imgType), nil
}

// Thumbnail renders a small square PNG for gallery listings.
// bimg.Options is a struct with many fields — this is Go's alternative to
// builder patterns or method chaining. You set only the fields you need.
func (p *ImageProcessor) Thumbnail(data []byte) ([]byte, error) {
	img := bimg.NewImage(data)

	thumb, err := img.Process(bimg.Options{
		Width:   thumbnailPixels,
		Height:  thumbnailPixels,
		Type:    bimg.PNG,
		Embed:   true, // Embed in a canvas if aspect ratio doesn't match
		Background: bimg.Color{ // Transparent canvas
			R: 0, G: 0, B: 0,
		},
		Interpretation: bimg.InterpretationSRGB,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering thumbnail: %w", err)
	}
	return thumb, nil
}
