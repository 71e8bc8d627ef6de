// Package service contains the studio coordinator: one uploaded product
// photo, the ordered collection of generated results, and the shared gating
// state (single-flight flag, quota, credential) every remote action goes
// through.
//
// All mutable state is owned by Studio and serialized behind one mutex —
// the Go-native equivalent of the original single-threaded scheduling model.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/credential"
	"github.com/omerdahan/angle-studio/internal/imageapi"
	"github.com/omerdahan/angle-studio/internal/model"
	"github.com/omerdahan/angle-studio/internal/quota"
	"github.com/omerdahan/angle-studio/internal/storage"
)

// Sentinel errors for the precondition guards. Callers (HTTP handlers, CLI)
// check these with errors.Is and translate them to user-facing responses.
var (
	ErrBusy             = errors.New("another API action is in flight")
	ErrNoUpload         = errors.New("no image uploaded")
	ErrNoAnglesSelected = errors.New("no angles selected")
	ErrNoCredential     = errors.New("API credential required")
	ErrQuotaExhausted   = errors.New("daily generation limit reached")
	ErrResultNotFound   = errors.New("result not found")
	ErrEmptyPrompt      = errors.New("background prompt is empty")
	ErrNotAnImage       = errors.New("please choose a valid image file")
)

// StatusListener observes run progress and status text. Implementations must
// return quickly and must not call back into the Studio.
type StatusListener interface {
	OnStatus(status model.RunStatus)
}

// Processor validates uploads and renders gallery thumbnails. ImageProcessor
// is the bimg-backed implementation used in production.
type Processor interface {
	Validate(data []byte) (contentType string, err error)
	Thumbnail(data []byte) ([]byte, error)
}

// Deps carries everything a Studio needs. In Go, we pass dependencies
// explicitly — no DI container, no magic.
type Deps struct {
	Client      imageapi.Client
	Ledger      *quota.Ledger
	Credentials *credential.Store
	Calls       storage.CallRepository
	Processor   Processor
	Exports     *storage.FileSystem
	EditorURL   string
	Cooldown    time.Duration
	CallTimeout time.Duration
	Listener    StatusListener // optional
	Logger      *zap.Logger
}

// Studio is the single coordinator for one editing session. Exactly one
// upload and one result collection exist at a time; the busy flag is the
// system-wide single-flight gate over every remote call sequence.
type Studio struct {
	mu      sync.Mutex
	busy    bool
	upload  *model.UploadedImage
	results []*model.GeneratedImage
	status  model.RunStatus
	lastErr string

	client      imageapi.Client
	ledger      *quota.Ledger
	creds       *credential.Store
	calls       storage.CallRepository
	processor   Processor
	exports     *storage.FileSystem
	editorURL   string
	cooldown    time.Duration
	callTimeout time.Duration
	listener    StatusListener
	logger      *zap.Logger

	// tick is the countdown granularity; tests shrink it.
	tick time.Duration
}

// NewStudio creates the coordinator with all gates wired up.
func NewStudio(deps Deps) *Studio {
	return &Studio{
		status:      model.RunStatus{State: model.RunIdle},
		client:      deps.Client,
		ledger:      deps.Ledger,
		creds:       deps.Credentials,
		calls:       deps.Calls,
		processor:   deps.Processor,
		exports:     deps.Exports,
		editorURL:   deps.EditorURL,
		cooldown:    deps.Cooldown,
		callTimeout: deps.CallTimeout,
		listener:    deps.Listener,
		logger:      deps.Logger,
		tick:        time.Second,
	}
}

// SetUpload validates and installs a new source photo, replacing any prior
// one wholesale and clearing all generated results. A non-image payload is
// rejected with no state change.
func (s *Studio) SetUpload(data []byte) error {
	contentType, err := s.processor.Validate(data)
	if err != nil {
		return ErrNotAnImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.upload = &model.UploadedImage{Data: data, ContentType: contentType}
	s.results = nil
	s.lastErr = ""
	s.status = model.RunStatus{State: model.RunIdle}
	return nil
}

// ClearUpload resets the session: upload and results are dropped.
func (s *Studio) ClearUpload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.upload = nil
	s.results = nil
	s.lastErr = ""
	s.status = model.RunStatus{State: model.RunIdle}
	return nil
}

// HasUpload reports whether a source photo is present.
func (s *Studio) HasUpload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload != nil
}

// UploadImage returns the current source photo payload.
func (s *Studio) UploadImage() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upload == nil {
		return nil, "", ErrNoUpload
	}
	return s.upload.Data, s.upload.ContentType, nil
}

// ResultView is the gallery-facing metadata for one generated image.
type ResultView struct {
	ID                 string                `json:"id"`
	Angle              model.AngleDefinition `json:"angle"`
	ContentType        string                `json:"content_type"`
	Upscaling          bool                  `json:"upscaling"`
	RemovingBackground bool                  `json:"removing_background"`
	ChangingBackground bool                  `json:"changing_background"`
	HasPrior           bool                  `json:"has_prior"`
}

// Results returns the insertion-ordered result metadata.
func (s *Studio) Results() []ResultView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]ResultView, 0, len(s.results))
	for _, r := range s.results {
		views = append(views, ResultView{
			ID:                 r.ID,
			Angle:              r.Angle,
			ContentType:        r.ContentType,
			Upscaling:          r.Upscaling,
			RemovingBackground: r.RemovingBackground,
			ChangingBackground: r.ChangingBackground,
			HasPrior:           r.HasPrior(),
		})
	}
	return views
}

// Result returns the gallery view for one result.
func (s *Studio) Result(id string) (ResultView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.findLocked(id)
	if img == nil {
		return ResultView{}, ErrResultNotFound
	}
	return ResultView{
		ID:                 img.ID,
		Angle:              img.Angle,
		ContentType:        img.ContentType,
		Upscaling:          img.Upscaling,
		RemovingBackground: img.RemovingBackground,
		ChangingBackground: img.ChangingBackground,
		HasPrior:           img.HasPrior(),
	}, nil
}

// ResultImage returns a result's current payload, or the pre-upscale
// baseline when prior is true.
func (s *Studio) ResultImage(id string, prior bool) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.findLocked(id)
	if img == nil {
		return nil, "", ErrResultNotFound
	}
	if prior {
		if !img.HasPrior() {
			return nil, "", ErrResultNotFound
		}
		return img.PriorData, img.ContentType, nil
	}
	return img.Data, img.ContentType, nil
}

// ResultThumbnail returns the small gallery rendition for a result.
func (s *Studio) ResultThumbnail(id string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img := s.findLocked(id)
	if img == nil {
		return nil, ErrResultNotFound
	}
	if len(img.Thumbnail) == 0 {
		return nil, ErrResultNotFound
	}
	return img.Thumbnail, nil
}

// Snapshot is the status surface the UI polls: run progress, quota, gate and
// credential state, and the single latest error.
type Snapshot struct {
	Busy              bool            `json:"busy"`
	UploadPresent     bool            `json:"upload_present"`
	Status            model.RunStatus `json:"status"`
	LastError         string          `json:"last_error,omitempty"`
	Used              int             `json:"used"`
	Limit             int             `json:"limit"`
	Remaining         int             `json:"remaining"`
	CredentialPresent bool            `json:"credential_present"`
	CredentialSource  string          `json:"credential_source,omitempty"`
	ResultCount       int             `json:"result_count"`
}

// Snapshot copies the current observable state.
func (s *Studio) Snapshot() Snapshot {
	_, credPresent := s.creds.Resolve()

	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Busy:              s.busy,
		UploadPresent:     s.upload != nil,
		Status:            s.status,
		LastError:         s.lastErr,
		Used:              s.ledger.CurrentCount(),
		Limit:             s.ledger.Limit(),
		Remaining:         s.ledger.Remaining(),
		CredentialPresent: credPresent,
		CredentialSource:  s.creds.Source(),
		ResultCount:       len(s.results),
	}
}

// release drops the single-flight gate.
func (s *Studio) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// findLocked looks up a result by ID. Caller must hold s.mu.
func (s *Studio) findLocked(id string) *model.GeneratedImage {
	for _, r := range s.results {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// setError records the single visible error message — latest overwrites prior.
func (s *Studio) setError(msg string) {
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

// setStatus mutates the run status under the lock and notifies the listener
// with a copy outside it.
func (s *Studio) setStatus(mutate func(st *model.RunStatus)) {
	s.mu.Lock()
	mutate(&s.status)
	snap := s.status
	l := s.listener
	s.mu.Unlock()

	if l != nil {
		l.OnStatus(snap)
	}
}

// newResult builds a GeneratedImage with a collision-free ID derived from the
// angle name plus a uniqueness token.
func (s *Studio) newResult(angle model.AngleDefinition, data []byte) *model.GeneratedImage {
	img := &model.GeneratedImage{
		ID:          fmt.Sprintf("%s-%s", angle.Name, uuid.NewString()),
		Data:        data,
		ContentType: "image/png",
		Angle:       angle,
	}

	thumb, err := s.processor.Thumbnail(data)
	if err != nil {
		// A missing thumbnail only degrades the gallery, never the result.
		s.logger.Warn("building thumbnail", zap.String("angle", angle.Name), zap.Error(err))
	} else {
		img.Thumbnail = thumb
	}
	return img
}

// callRemote runs one remote operation with the per-call timeout and records
// an audit row regardless of outcome. It is the only path to the remote
// service.
func (s *Studio) callRemote(ctx context.Context, kind model.CallKind, angle string, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	callCtx := ctx
	if s.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
	}

	start := time.Now()
	data, err := fn(callCtx)
	durationMs := time.Since(start).Milliseconds()

	call := &model.ApiCall{
		Kind:       kind,
		Angle:      angle,
		Provider:   s.client.ProviderName(),
		Model:      s.client.ModelName(),
		Success:    err == nil,
		DurationMs: &durationMs,
	}
	if err != nil {
		msg := err.Error()
		call.ErrorMessage = &msg
	}
	if repoErr := s.calls.Create(ctx, call); repoErr != nil {
		s.logger.Error("recording api call", zap.Error(repoErr))
	}

	return data, err
}
