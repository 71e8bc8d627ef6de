package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/credential"
	"github.com/omerdahan/angle-studio/internal/model"
	"github.com/omerdahan/angle-studio/internal/service"
)

// maxUploadBytes caps the multipart payload; generated renderings come back
// well under this, and product photos should too.
const maxUploadBytes = 20 << 20

// StudioHandler exposes the studio session over HTTP: upload, generation,
// results, post-processing and hand-off.
type StudioHandler struct {
	studio *service.Studio
	creds  *credential.Store

	// runCtx outlives individual requests — a generation run keeps going
	// after the POST /generate response, and only server shutdown cancels it.
	runCtx context.Context

	logger *zap.Logger
}

// NewStudioHandler creates a new StudioHandler.
func NewStudioHandler(studio *service.Studio, creds *credential.Store, runCtx context.Context, logger *zap.Logger) *StudioHandler {
	return &StudioHandler{
		studio: studio,
		creds:  creds,
		runCtx: runCtx,
		logger: logger,
	}
}

// Angles lists the fixed camera-angle catalogue.
// Route: GET /api/v1/angles
func (h *StudioHandler) Angles(c *gin.Context) {
	c.JSON(http.StatusOK, model.CameraAngles)
}

// Upload installs a new source photo from a multipart form field named
// "image". A non-image payload is rejected with no state change.
// Route: POST /api/v1/upload
func (h *StudioHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image form field"})
		return
	}
	if file.Size > maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	f, err := file.Open()
	if err != nil {
		h.logger.Error("opening upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		h.logger.Error("reading upload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if err := h.studio.SetUpload(data); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "uploaded",
		"size":   len(data),
	})
}

// GetUpload serves the current source photo.
// Route: GET /api/v1/upload
func (h *StudioHandler) GetUpload(c *gin.Context) {
	data, contentType, err := h.studio.UploadImage()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// DeleteUpload resets the whole session.
// Route: DELETE /api/v1/upload
func (h *StudioHandler) DeleteUpload(c *gin.Context) {
	if err := h.studio.ClearUpload(); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type generateRequest struct {
	Angles []string `json:"angles"`
}

// Generate starts a generation run for the selected angles. The run proceeds
// in the background; the response only confirms it was accepted. Progress is
// polled via GET /status.
// Route: POST /api/v1/generate
func (h *StudioHandler) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.studio.StartGenerate(h.runCtx, req.Angles); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Status returns the poll surface: run progress, quota, gate and credential
// state, and the latest error.
// Route: GET /api/v1/status
func (h *StudioHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.studio.Snapshot())
}

// Results lists the generated images in insertion order (metadata only —
// payloads are fetched per result).
// Route: GET /api/v1/results
func (h *StudioHandler) Results(c *gin.Context) {
	c.JSON(http.StatusOK, h.studio.Results())
}

// ResultImage serves one result's payload. ?which=prior serves the
// pre-upscale baseline for before/after comparison.
// Route: GET /api/v1/results/:id/image
func (h *StudioHandler) ResultImage(c *gin.Context) {
	prior := c.Query("which") == "prior"
	data, contentType, err := h.studio.ResultImage(c.Param("id"), prior)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// ResultThumbnail serves the small gallery rendition.
// Route: GET /api/v1/results/:id/thumbnail
func (h *StudioHandler) ResultThumbnail(c *gin.Context) {
	data, err := h.studio.ResultThumbnail(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// Download serves one result as a browser attachment under its sanitized
// filename.
// Route: GET /api/v1/results/:id/download
func (h *StudioHandler) Download(c *gin.Context) {
	filename, data, contentType, err := h.studio.ResultDownload(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// Upscale enhances one result. A result that already holds its comparison
// baseline has been upscaled and is not upscaled again.
// Route: POST /api/v1/results/:id/upscale
func (h *StudioHandler) Upscale(c *gin.Context) {
	id := c.Param("id")

	view, err := h.studio.Result(id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if view.HasPrior {
		c.JSON(http.StatusConflict, gin.H{"error": "result already upscaled"})
		return
	}

	if err := h.studio.Upscale(c.Request.Context(), id); err != nil {
		h.respondActionError(c, err, "upscale", view.Angle.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "upscaled"})
}

// RemoveBackground isolates the product in one result.
// Route: POST /api/v1/results/:id/remove-background
func (h *StudioHandler) RemoveBackground(c *gin.Context) {
	id := c.Param("id")

	view, err := h.studio.Result(id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.studio.RemoveBackground(c.Request.Context(), id); err != nil {
		h.respondActionError(c, err, "remove background", view.Angle.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "background removed"})
}

type changeBackgroundRequest struct {
	Prompt string `json:"prompt"`
}

// ChangeBackground places one result's product into a prompted scene.
// Route: POST /api/v1/results/:id/change-background
func (h *StudioHandler) ChangeBackground(c *gin.Context) {
	id := c.Param("id")

	var req changeBackgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	view, err := h.studio.Result(id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if err := h.studio.ChangeBackground(c.Request.Context(), id, req.Prompt); err != nil {
		h.respondActionError(c, err, "change background", view.Angle.Name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "background changed"})
}

// Handoff exports one result for the external design editor and returns the
// editor URL the client should open.
// Route: POST /api/v1/results/:id/handoff
func (h *StudioHandler) Handoff(c *gin.Context) {
	filename, editorURL, err := h.studio.Handoff(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"filename":   filename,
		"editor_url": editorURL,
	})
}

// GetCredential reports whether a remote-service credential is active and
// where it came from. The secret itself never leaves the server.
// Route: GET /api/v1/credential
func (h *StudioHandler) GetCredential(c *gin.Context) {
	_, present := h.creds.Resolve()
	c.JSON(http.StatusOK, gin.H{
		"present": present,
		"source":  h.creds.Source(),
	})
}

type putCredentialRequest struct {
	Credential string `json:"credential"`
}

// PutCredential saves a remote-service credential. It takes effect
// immediately, including for a run already waiting on one.
// Route: PUT /api/v1/credential
func (h *StudioHandler) PutCredential(c *gin.Context) {
	var req putCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.creds.Save(c.Request.Context(), req.Credential); err != nil {
		if errors.Is(err, credential.ErrEmptyCredential) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "credential is empty"})
			return
		}
		h.logger.Error("saving credential", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// respondError translates the service sentinels into HTTP responses.
func (h *StudioHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotAnImage):
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrNotAnImage.Error()})
	case errors.Is(err, service.ErrNoAnglesSelected):
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrNoAnglesSelected.Error()})
	case errors.Is(err, service.ErrNoUpload):
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrNoUpload.Error()})
	case errors.Is(err, service.ErrEmptyPrompt):
		c.JSON(http.StatusBadRequest, gin.H{"error": service.ErrEmptyPrompt.Error()})
	case errors.Is(err, service.ErrResultNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrResultNotFound.Error()})
	case errors.Is(err, service.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrBusy.Error()})
	case errors.Is(err, service.ErrNoCredential):
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrNoCredential.Error()})
	case errors.Is(err, service.ErrQuotaExhausted):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": service.ErrQuotaExhausted.Error()})
	default:
		h.logger.Error("unhandled service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// respondActionError is respondError plus the remote-failure case: a
// post-processing call that reached the remote service and failed maps to 502
// with the same fixed message the status surface records.
func (h *StudioHandler) respondActionError(c *gin.Context, err error, action, angleName string) {
	switch {
	case errors.Is(err, service.ErrBusy),
		errors.Is(err, service.ErrNoCredential),
		errors.Is(err, service.ErrQuotaExhausted),
		errors.Is(err, service.ErrResultNotFound),
		errors.Is(err, service.ErrNoUpload),
		errors.Is(err, service.ErrEmptyPrompt):
		h.respondError(c, err)
	default:
		c.JSON(http.StatusBadGateway, gin.H{
			"error": fmt.Sprintf("%s for %s failed", action, angleName),
		})
	}
}
