package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autograde-backend/internal/analyses"
	"autograde-backend/internal/services/health"
	"autograde-backend/internal/shared/config"
	"autograde-backend/internal/shared/server/middleware"
	"autograde-backend/internal/shared/server/respond"
)

const serviceVersion = "1.0.0"

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config, analysisHandler *analyses.Handler, healthSvc *health.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	r.GET("/", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{
			"message": "AutoGrade AI API",
			"status":  "active",
			"version": serviceVersion,
		})
	})
	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})

	analysisHandler.RegisterRoutes(r)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
