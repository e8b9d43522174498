// Package admin serves the relay's HTTP surface: health, Prometheus metrics,
// client and session listings, event injection and the WebSocket bridge.
package admin

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vrrelay/internal/audit"
	"vrrelay/internal/middleware/auth"
	"vrrelay/internal/wsbridge"
)

// Deps wires the router. Stats, Sessions, Bridge and Gatherer are optional.
type Deps struct {
	Relay       RelayControl
	Stats       StatsReader
	Sessions    audit.Store
	Bridge      *wsbridge.Hub
	Gatherer    prometheus.Gatherer
	Credentials Credentials
	Logger      *slog.Logger
}

func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		relay:    d.Relay,
		stats:    d.Stats,
		sessions: d.Sessions,
		creds:    d.Credentials,
		logger:   logger,
	}
	if d.Bridge != nil {
		h.wsCount = d.Bridge.ClientCount
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", h.Health)
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	r.POST("/auth/login", h.Login)

	authed := r.Group("/", auth.RequireToken(d.Credentials.JWTSecret))
	authed.GET("/clients", h.ListClients)
	authed.GET("/stats/events", h.EventCounts)
	authed.GET("/sessions", h.RecentSessions)
	if d.Bridge != nil {
		authed.GET("/vrevent", wsbridge.Handler(d.Bridge))
	}

	admin := authed.Group("/admin", auth.RequireAdmin())
	admin.POST("/events", h.InjectEvent)
	admin.POST("/shutdown", h.Shutdown)

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
