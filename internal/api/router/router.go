package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kebal2/etranslation-mock/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger, "/health"))
	r.Use(CORSMiddleware())

	r.GET("/health", healthHandler(deps))

	translateHandler := handler.NewTranslateHandler(deps)

	v1 := r.Group("/api/v1")
	{
		translate := v1.Group("/translate")
		{
			// POST /api/v1/translate - accept a translation request, answer with its tracking code
			translate.POST("", translateHandler.Translate)

			// GET /api/v1/translate/:request_id/deliveries - callback attempts for a request
			translate.GET("/:request_id/deliveries", translateHandler.ListDeliveries)
		}
	}

	return r
}

func healthHandler(deps *handler.Dependencies) gin.HandlerFunc {
	service := deps.ServiceName
	if service == "" {
		service = "etranslation-mock"
	}

	return func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": service,
					"error":   err.Error(),
				})
				return
			}
		}

		body := gin.H{
			"status":  "healthy",
			"service": service,
		}
		if deps.Queue != nil {
			body["queue_depth"] = deps.Queue.Len()
		}
		if deps.Worker != nil {
			body["worker"] = deps.Worker.Stats()
		}
		c.JSON(http.StatusOK, body)
	}
}
