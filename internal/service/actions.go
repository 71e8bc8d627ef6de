package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/model"
)

// The three post-processing actions are structurally identical single-call
// operations layered on the same gates as the generation run: quota checked
// before the lock, single-flight lock held for the duration, transient flag
// set on the target, guaranteed cleanup on every path. On failure the
// result's payload is never touched.

// Upscale enhances one result. The payload as it was immediately before the
// first successful upscale is kept as the comparison baseline; a second
// upscale never overwrites it.
func (s *Studio) Upscale(ctx context.Context, id string) error {
	return s.postProcess(ctx, id, model.CallUpscale,
		func(img *model.GeneratedImage, v bool) { img.Upscaling = v },
		func(callCtx context.Context, payload []byte, contentType, cred string) ([]byte, error) {
			return s.client.Upscale(callCtx, payload, contentType, cred)
		},
		func(img *model.GeneratedImage, prior, data []byte) {
			if !img.HasPrior() {
				img.PriorData = prior
			}
			img.Data = data
		},
	)
}

// RemoveBackground isolates the product in one result.
func (s *Studio) RemoveBackground(ctx context.Context, id string) error {
	return s.postProcess(ctx, id, model.CallRemoveBackground,
		func(img *model.GeneratedImage, v bool) { img.RemovingBackground = v },
		func(callCtx context.Context, payload []byte, contentType, cred string) ([]byte, error) {
			return s.client.RemoveBackground(callCtx, payload, contentType, cred)
		},
		func(img *model.GeneratedImage, _, data []byte) {
			img.Data = data
		},
	)
}

// ChangeBackground places one result's product into the prompted scene.
// Requires a non-empty prompt.
func (s *Studio) ChangeBackground(ctx context.Context, id, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return ErrEmptyPrompt
	}

	return s.postProcess(ctx, id, model.CallChangeBackground,
		func(img *model.GeneratedImage, v bool) { img.ChangingBackground = v },
		func(callCtx context.Context, payload []byte, contentType, cred string) ([]byte, error) {
			return s.client.ChangeBackground(callCtx, payload, contentType, prompt, cred)
		},
		func(img *model.GeneratedImage, _, data []byte) {
			img.Data = data
		},
	)
}

// postProcess implements the shared protocol. setFlag toggles the target's
// transient flag, call issues the remote operation, apply commits the new
// payload (receiving the pre-call payload for baseline capture).
func (s *Studio) postProcess(
	ctx context.Context,
	id string,
	kind model.CallKind,
	setFlag func(img *model.GeneratedImage, inFlight bool),
	call func(ctx context.Context, payload []byte, contentType, cred string) ([]byte, error),
	apply func(img *model.GeneratedImage, prior, data []byte),
) error {
	cred, ok := s.creds.Resolve()
	if !ok {
		return ErrNoCredential
	}

	// Quota is checked before acquiring the lock, like every caller-side
	// guard in this system.
	if s.ledger.Remaining() <= 0 {
		s.setError(ErrQuotaExhausted.Error())
		return ErrQuotaExhausted
	}

	s.mu.Lock()
	img := s.findLocked(id)
	if img == nil {
		s.mu.Unlock()
		return ErrResultNotFound
	}
	if s.upload == nil {
		s.mu.Unlock()
		return ErrNoUpload
	}
	if s.busy {
		s.mu.Unlock()
		return ErrBusy
	}
	s.busy = true
	setFlag(img, true)
	prior := img.Data
	contentType := s.upload.ContentType
	angleName := img.Angle.Name
	s.mu.Unlock()

	// Guaranteed cleanup: flag and gate are released on every path.
	defer func() {
		s.mu.Lock()
		setFlag(img, false)
		s.busy = false
		s.status.Message = ""
		s.mu.Unlock()
	}()

	s.setStatus(func(st *model.RunStatus) {
		st.Message = fmt.Sprintf("%s for %s", kind, angleName)
	})

	data, err := s.callRemote(ctx, kind, angleName, func(callCtx context.Context) ([]byte, error) {
		return call(callCtx, prior, contentType, cred)
	})
	if err != nil {
		s.logger.Warn("post-processing call failed",
			zap.String("kind", string(kind)),
			zap.String("angle", angleName),
			zap.Error(err),
		)
		s.setError(fmt.Sprintf("%s for %s failed", kind, angleName))
		return fmt.Errorf("%s for %s: %w", kind, angleName, err)
	}

	s.ledger.Increment(ctx)

	s.mu.Lock()
	apply(img, prior, data)
	s.mu.Unlock()

	// Refresh the gallery rendition for the new payload.
	if thumb, thumbErr := s.processor.Thumbnail(data); thumbErr == nil {
		s.mu.Lock()
		img.Thumbnail = thumb
		s.mu.Unlock()
	}

	return nil
}
