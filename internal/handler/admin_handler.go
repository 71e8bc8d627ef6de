package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/model"
	"github.com/omerdahan/angle-studio/internal/quota"
	"github.com/omerdahan/angle-studio/internal/storage"
)

// AdminHandler handles administrative endpoints.
type AdminHandler struct {
	ledger *quota.Ledger
	calls  storage.CallRepository
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(ledger *quota.Ledger, calls storage.CallRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		ledger: ledger,
		calls:  calls,
		logger: logger,
	}
}

// Stats returns today's quota usage and the lifetime remote-call counters.
// Route: GET /api/v1/admin/stats
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.calls.Count(ctx)
	if err != nil {
		h.logger.Error("counting api calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	failed, err := h.calls.CountFailed(ctx)
	if err != nil {
		h.logger.Error("counting failed api calls", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	byKind := gin.H{}
	for _, kind := range []model.CallKind{
		model.CallGenerate,
		model.CallUpscale,
		model.CallRemoveBackground,
		model.CallChangeBackground,
	} {
		n, err := h.calls.CountByKind(ctx, kind)
		if err != nil {
			h.logger.Error("counting api calls by kind",
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		byKind[string(kind)] = n
	}

	c.JSON(http.StatusOK, gin.H{
		"usage": gin.H{
			"used":      h.ledger.CurrentCount(),
			"limit":     h.ledger.Limit(),
			"remaining": h.ledger.Remaining(),
		},
		"calls": gin.H{
			"total":   total,
			"failed":  failed,
			"by_kind": byKind,
		},
	})
}
