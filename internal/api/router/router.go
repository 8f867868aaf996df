package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/signal-pipeline/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "signal-api-service",
		})
	})

	signalHandler := handler.NewSignalHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		signals := v1.Group("/signals")
		{
			// POST /api/v1/signals/generate - Generate and publish signals
			signals.POST("/generate", signalHandler.GenerateSignals)

			// GET /api/v1/signals - List signals with filtering and pagination
			signals.GET("", signalHandler.ListSignals)

			// GET /api/v1/signals/:signal_id - Get signal details
			signals.GET("/:signal_id", signalHandler.GetSignal)
		}
	}

	return r
}
