package admin

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vrrelay/internal/audit"
	"vrrelay/internal/middleware/auth"
	"vrrelay/internal/relay"
	"vrrelay/pkg/vrevent"
)

// RelayControl is what the admin API needs from the relay server.
type RelayControl interface {
	Clients() []relay.ClientInfo
	ClientCount() int
	Inject(source relay.ClientInfo, e vrevent.Event) bool
}

// StatsReader reads the Redis event counters.
type StatsReader interface {
	Counts(ctx context.Context) (map[string]int64, error)
}

type Credentials struct {
	Username     string
	PasswordHash string
	JWTSecret    string
	TokenTTL     time.Duration
}

type Handler struct {
	relay    RelayControl
	stats    StatsReader
	sessions audit.Store
	creds    Credentials
	wsCount  func() int
	logger   *slog.Logger
}

var adminSource = relay.ClientInfo{ID: "admin", Address: "admin-api"}

func (h *Handler) Health(c *gin.Context) {
	resp := HealthResponse{Status: "ok", Clients: h.relay.ClientCount()}
	if h.wsCount != nil {
		resp.WSClients = h.wsCount()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.creds.PasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "login disabled: ADMIN_PASSWORD_HASH not set"})
		return
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.creds.Username)) == 1
	passErr := auth.VerifyPassword(h.creds.PasswordHash, req.Password)
	if !userOK || passErr != nil {
		h.logger.Warn("admin_login_failed", "username", req.Username, "remote", c.ClientIP())
		c.JSON(http.StatusUnauthorized, gin.H{"error": auth.ErrInvalidCredentials.Error()})
		return
	}

	token, err := auth.IssueToken(h.creds.JWTSecret, req.Username, auth.RoleAdmin, h.creds.TokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(h.creds.TokenTTL.Seconds()),
	})
}

func (h *Handler) ListClients(c *gin.Context) {
	clients := h.relay.Clients()
	c.JSON(http.StatusOK, gin.H{"clients": clients, "count": len(clients)})
}

func (h *Handler) EventCounts(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event stats not configured"})
		return
	}
	counts, err := h.stats.Counts(c.Request.Context())
	if err != nil {
		h.logger.Error("stats_read_failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read event stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": counts})
}

func (h *Handler) RecentSessions(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session audit not configured"})
		return
	}
	var q struct {
		Limit int `form:"limit,default=50" binding:"min=1,max=1000"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sessions, err := h.sessions.Recent(c.Request.Context(), q.Limit)
	if err != nil {
		h.logger.Error("sessions_read_failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handler) InjectEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := req.Event()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.inject(c, e)
}

// Shutdown injects the shutdown sentinel, so connected clients see it
// before the relay closes.
func (h *Handler) Shutdown(c *gin.Context) {
	h.logger.Info("admin_shutdown_requested", "subject", c.GetString("subject"))
	h.inject(c, vrevent.NewEmpty(vrevent.ShutdownEventName))
}

func (h *Handler) inject(c *gin.Context, e vrevent.Event) {
	if !h.relay.Inject(adminSource, e) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "relay inject queue full"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": e.String()})
}
