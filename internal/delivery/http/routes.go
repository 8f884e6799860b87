package http

import (
	"github.com/gin-gonic/gin"

	"github.com/readar/backend/config"
)

// SetupRouter creates and configures the Gin router. limiter may be nil to
// disable per-IP limiting.
func SetupRouter(cfg *config.Config, handler *Handler, limiter Limiter) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	if limiter != nil {
		router.Use(RateLimitMiddleware(limiter))
	}

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	{
		books := api.Group("/books")
		books.Use(SellerAuthMiddleware(cfg.Auth.JWTSecret))
		{
			books.GET("/my/books", handler.ListMyBooks)
			books.POST("/", handler.CreateBook)
			books.PUT("/:id", handler.UpdateBook)
			books.POST("/import-excel", handler.ImportSpreadsheet)
		}
	}

	return router
}
