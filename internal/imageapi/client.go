// Package imageapi provides a provider-agnostic client for the hosted
// generative-image service: render a product from a camera angle, upscale,
// remove a background, or replace it with a prompted scene.
//
// Each operation issues exactly one request and either returns decoded image
// bytes or fails — there are no retries and no provider fallback anywhere in
// the system; a single failure is terminal for that call.
package imageapi

import (
	"context"
	"errors"
)

// ErrMissingCredential is returned when an operation is invoked without an
// API credential. Callers are expected to gate on credential presence before
// they ever get here; this is the last line of defense.
var ErrMissingCredential = errors.New("no API credential provided")

// Client is the interface for generative-image providers. Gemini and OpenAI
// both implement it; which one is active is a config choice, not a runtime
// decision.
//
// Go interface design tip: keep interfaces small. Four verbs that all share
// the shape "image in, image out" is as big as this one should get.
type Client interface {
	// GenerateAngle renders the uploaded product from one camera angle,
	// described by the angle's synthesis hint.
	GenerateAngle(ctx context.Context, image []byte, contentType, promptHint, credential string) ([]byte, error)

	// Upscale enhances resolution and detail without altering content.
	Upscale(ctx context.Context, image []byte, contentType, credential string) ([]byte, error)

	// RemoveBackground isolates the product on a clean transparent/white background.
	RemoveBackground(ctx context.Context, image []byte, contentType, credential string) ([]byte, error)

	// ChangeBackground places the product into the scene the prompt describes.
	ChangeBackground(ctx context.Context, image []byte, contentType, prompt, credential string) ([]byte, error)

	ProviderName() string
	ModelName() string
}
