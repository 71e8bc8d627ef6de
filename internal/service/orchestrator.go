package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/model"
)

// Generate drives one sequential generation run: one remote call per selected
// angle, in the static angle-list order, with a fixed cooldown between calls
// to stay inside the remote service's requests-per-minute budget.
//
// Preconditions are checked (and the single-flight gate acquired) before any
// remote work starts; precondition failures return a sentinel error and leave
// all state untouched. Once the gate is held the run itself never returns an
// error — partial failure is reported through the status surface, and results
// produced before an abort are retained.
//
// Calls are deliberately sequential, not parallel: the external service
// enforces a global rate limit.
func (s *Studio) Generate(ctx context.Context, selected []string) error {
	upload, angles, cred, err := s.prepare(selected)
	if err != nil {
		return err
	}
	s.run(ctx, upload, angles, cred)
	return nil
}

// StartGenerate is the asynchronous variant used by the HTTP layer: the
// preconditions are checked (and reported) synchronously, the run itself
// proceeds in its own goroutine under the server's run context.
func (s *Studio) StartGenerate(ctx context.Context, selected []string) error {
	upload, angles, cred, err := s.prepare(selected)
	if err != nil {
		return err
	}
	go s.run(ctx, upload, angles, cred)
	return nil
}

// prepare checks every precondition and, when they all hold, acquires the
// single-flight gate. The caller owns the gate afterwards and must run
// s.run to release it.
func (s *Studio) prepare(selected []string) (model.UploadedImage, []model.AngleDefinition, string, error) {
	var none model.UploadedImage

	angles := model.FilterAngles(selected)
	if len(angles) == 0 {
		return none, nil, "", ErrNoAnglesSelected
	}

	cred, ok := s.creds.Resolve()
	if !ok {
		return none, nil, "", ErrNoCredential
	}

	s.mu.Lock()
	if s.upload == nil {
		s.mu.Unlock()
		return none, nil, "", ErrNoUpload
	}
	if s.busy {
		s.mu.Unlock()
		return none, nil, "", ErrBusy
	}
	if s.ledger.Remaining() <= 0 {
		s.lastErr = ErrQuotaExhausted.Error()
		s.mu.Unlock()
		return none, nil, "", ErrQuotaExhausted
	}

	// Acquire the gate and start fresh: a new run replaces all prior results.
	s.busy = true
	s.results = nil
	s.lastErr = ""
	upload := *s.upload
	s.mu.Unlock()

	return upload, angles, cred, nil
}

func (s *Studio) run(ctx context.Context, upload model.UploadedImage, angles []model.AngleDefinition, cred string) {
	total := len(angles)
	made := 0
	aborted := false

	// Guaranteed cleanup: release the gate and clear the transient
	// progress/waiting indicators whatever happened. Results stay.
	defer func() {
		finalState := model.RunCompleted
		message := fmt.Sprintf("run complete: %d images generated", made)
		if aborted {
			finalState = model.RunAborted
			message = ""
		}
		s.setStatus(func(st *model.RunStatus) {
			st.State = finalState
			st.Progress = 0
			st.WaitingSeconds = 0
			st.Message = message
		})
		s.release()
	}()

	s.setStatus(func(st *model.RunStatus) {
		*st = model.RunStatus{
			State:   model.RunRunning,
			Total:   total,
			Message: "starting generation run",
		}
	})

	for i, angle := range angles {
		// usedSoFar + madeThisRun: the ledger already reflects this run's
		// successes, so the current count is the whole picture.
		if s.ledger.CurrentCount() >= s.ledger.Limit() {
			s.setError(ErrQuotaExhausted.Error())
			aborted = true
			return
		}

		s.setStatus(func(st *model.RunStatus) {
			st.State = model.RunRunning
			st.AngleIndex = i
			st.WaitingSeconds = 0
			st.Message = fmt.Sprintf("generating image %d/%d: %s", i+1, total, angle.Name)
		})

		data, err := s.callRemote(ctx, model.CallGenerate, angle.Name, func(callCtx context.Context) ([]byte, error) {
			return s.client.GenerateAngle(callCtx, upload.Data, upload.ContentType, angle.PromptHint, cred)
		})
		if err != nil {
			// Fail fast: one failure ends the whole run. Results already
			// produced are kept, not rolled back.
			s.logger.Warn("generation call failed",
				zap.String("angle", angle.Name),
				zap.Error(err),
			)
			s.setError(fmt.Sprintf("generating image for %s failed", angle.Name))
			aborted = true
			return
		}

		// The per-call success path is the only place the ledger is
		// incremented.
		s.ledger.Increment(ctx)
		made++

		result := s.newResult(angle, data)
		s.mu.Lock()
		s.results = append(s.results, result)
		s.mu.Unlock()

		s.setStatus(func(st *model.RunStatus) {
			st.Progress = float64(i+1) / float64(total)
			st.Message = fmt.Sprintf("received image for %s", angle.Name)
		})

		if i < total-1 {
			if !s.coolDown(ctx) {
				aborted = true
				return
			}
		}
	}
}

// coolDown waits out the fixed inter-request delay, surfacing a once-per-
// second countdown. Returns false if the run context was cancelled (server
// shutdown) — there is no user-facing mid-run cancel.
func (s *Studio) coolDown(ctx context.Context) bool {
	seconds := int(s.cooldown / time.Second)
	for sec := seconds; sec > 0; sec-- {
		s.setStatus(func(st *model.RunStatus) {
			st.State = model.RunWaiting
			st.WaitingSeconds = sec
			st.Message = fmt.Sprintf("waiting %d seconds before the next request", sec)
		})

		select {
		case <-ctx.Done():
			return false
		case <-time.After(s.tick):
		}
	}

	s.setStatus(func(st *model.RunStatus) {
		st.State = model.RunRunning
		st.WaitingSeconds = 0
	})
	return true
}
