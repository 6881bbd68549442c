package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calipso-dynamics/notification-api/internal/handler"
	"github.com/calipso-dynamics/notification-api/internal/middleware"
	"github.com/calipso-dynamics/notification-api/pkg/metrics"
)

// Config carries the router-level knobs.
type Config struct {
	APIKey         string
	RateLimitRPS   float64
	RateLimitBurst int
}

// New assembles the gin engine: open health and metrics endpoints, then the
// key-guarded /api group with every resource handler mounted.
func New(cfg Config, m *metrics.Metrics, handlers ...handler.Registerer) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(
		middleware.RequestID(),
		middleware.Logger(m),
		middleware.Recovery(),
	)

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api")
	api.Use(
		middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		middleware.APIKeyAuth(cfg.APIKey),
	)
	for _, h := range handlers {
		h.RegisterRoutes(api)
	}

	return engine
}
