// Package server configures the HTTP server and routes.
package server

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/config"
	"github.com/omerdahan/angle-studio/internal/credential"
	"github.com/omerdahan/angle-studio/internal/handler"
	"github.com/omerdahan/angle-studio/internal/middleware"
	"github.com/omerdahan/angle-studio/internal/quota"
	"github.com/omerdahan/angle-studio/internal/service"
	"github.com/omerdahan/angle-studio/internal/storage"
)

// Deps carries the wired application pieces into the route table.
type Deps struct {
	Studio      *service.Studio
	Credentials *credential.Store
	Ledger      *quota.Ledger
	Calls       storage.CallRepository

	// RunCtx is the server-lifetime context generation runs execute under;
	// shutdown cancels it.
	RunCtx context.Context
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
// In Go, we pass dependencies explicitly — no DI container, no magic.
// Each handler gets exactly the dependencies it needs.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler()
	studioHandler := handler.NewStudioHandler(deps.Studio, deps.Credentials, deps.RunCtx, logger)
	adminHandler := handler.NewAdminHandler(deps.Ledger, deps.Calls, logger)

	// Public endpoints
	r.GET("/healthz", healthHandler.Healthz)

	// CORS and rate limiting apply to the entire API group.
	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	api.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		api.GET("/angles", studioHandler.Angles)

		api.POST("/upload", studioHandler.Upload)
		api.GET("/upload", studioHandler.GetUpload)
		api.DELETE("/upload", studioHandler.DeleteUpload)

		api.GET("/status", studioHandler.Status)

		api.GET("/results", studioHandler.Results)
		api.GET("/results/:id/image", studioHandler.ResultImage)
		api.GET("/results/:id/thumbnail", studioHandler.ResultThumbnail)
		api.GET("/results/:id/download", studioHandler.Download)
		api.POST("/results/:id/handoff", studioHandler.Handoff)

		api.GET("/credential", studioHandler.GetCredential)
		api.PUT("/credential", studioHandler.PutCredential)
	}

	// The endpoints that spend remote API calls sit behind the credential
	// gate: without an active key they can only fail, so they are refused
	// up front.
	spend := api.Group("")
	spend.Use(middleware.RequireCredential(deps.Credentials))
	{
		spend.POST("/generate", studioHandler.Generate)
		spend.POST("/results/:id/upscale", studioHandler.Upscale)
		spend.POST("/results/:id/remove-background", studioHandler.RemoveBackground)
		spend.POST("/results/:id/change-background", studioHandler.ChangeBackground)
	}

	// Admin endpoints
	admin := api.Group("/admin")
	{
		admin.GET("/stats", adminHandler.Stats)
	}
}
