package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-sticker/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	if authCfg.Enabled() {
		v1.Use(middleware.Auth(authCfg))
	}
	{
		v1.POST("/stickers", handler.ConvertSticker)
		v1.POST("/stickers/inspect", handler.InspectSticker)
	}
}
