package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"vrrelay/internal/audit"
	"vrrelay/internal/middleware/auth"
	"vrrelay/internal/relay"
	"vrrelay/pkg/vrevent"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeRelay struct {
	mu       sync.Mutex
	clients  []relay.ClientInfo
	injected []vrevent.Event
	full     bool
}

func (f *fakeRelay) Clients() []relay.ClientInfo { return f.clients }
func (f *fakeRelay) ClientCount() int            { return len(f.clients) }

func (f *fakeRelay) Inject(_ relay.ClientInfo, e vrevent.Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.injected = append(f.injected, e)
	return true
}

type fakeStats struct {
	counts map[string]int64
	err    error
}

func (f fakeStats) Counts(context.Context) (map[string]int64, error) { return f.counts, f.err }

type fakeSessions struct {
	audit.Store
	sessions []audit.Session
	limit    int
}

func (f *fakeSessions) Recent(_ context.Context, limit int) ([]audit.Session, error) {
	f.limit = limit
	return f.sessions, nil
}

type AdminSuite struct {
	suite.Suite
	relay    *fakeRelay
	sessions *fakeSessions
	router   *gin.Engine
	admin    string
	observer string
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminSuite))
}

func (s *AdminSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword("correct horse")
	s.Require().NoError(err)

	s.relay = &fakeRelay{clients: []relay.ClientInfo{
		{ID: "a", Address: "10.0.0.1:4000", ConnectedAt: time.Unix(1700000000, 0).UTC()},
	}}
	s.sessions = &fakeSessions{sessions: []audit.Session{{ID: "a", Address: "10.0.0.1:4000", EventsSent: 3}}}

	reg := prometheus.NewRegistry()
	relay.NewMetrics(reg)

	s.router = NewRouter(Deps{
		Relay:    s.relay,
		Stats:    fakeStats{counts: map[string]int64{"Head/Position": 12}},
		Sessions: s.sessions,
		Gatherer: reg,
		Credentials: Credentials{
			Username:     "ops",
			PasswordHash: hash,
			JWTSecret:    testSecret,
			TokenTTL:     time.Hour,
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	s.admin, err = auth.IssueToken(testSecret, "ops", auth.RoleAdmin, time.Minute)
	s.Require().NoError(err)
	s.observer, err = auth.IssueToken(testSecret, "viewer", auth.RoleObserver, time.Minute)
	s.Require().NoError(err)
}

func (s *AdminSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *AdminSuite) TestHealthIsPublic() {
	w := s.do(http.MethodGet, "/healthz", "", nil)
	s.Equal(http.StatusOK, w.Code)

	var resp HealthResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("ok", resp.Status)
	s.Equal(1, resp.Clients)
}

func (s *AdminSuite) TestMetricsExposed() {
	w := s.do(http.MethodGet, "/metrics", "", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "vrrelay_connected_clients")
}

func (s *AdminSuite) TestLogin() {
	w := s.do(http.MethodPost, "/auth/login", "", LoginRequest{Username: "ops", Password: "correct horse"})
	s.Require().Equal(http.StatusOK, w.Code)

	var resp TokenResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("Bearer", resp.TokenType)
	s.Equal(3600, resp.ExpiresIn)

	claims, err := auth.ValidateToken(testSecret, resp.AccessToken)
	s.Require().NoError(err)
	s.Equal(auth.RoleAdmin, claims.Role)

	w = s.do(http.MethodPost, "/auth/login", "", LoginRequest{Username: "ops", Password: "wrong"})
	s.Equal(http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/auth/login", "", LoginRequest{Username: "root", Password: "correct horse"})
	s.Equal(http.StatusUnauthorized, w.Code)
	w = s.do(http.MethodPost, "/auth/login", "", map[string]string{"username": "ops"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AdminSuite) TestClientsNeedsToken() {
	s.Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/clients", "", nil).Code)

	w := s.do(http.MethodGet, "/clients", s.observer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"address":"10.0.0.1:4000"`)
	s.Contains(w.Body.String(), `"count":1`)
}

func (s *AdminSuite) TestEventCounts() {
	w := s.do(http.MethodGet, "/stats/events", s.observer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"events":{"Head/Position":12}}`, w.Body.String())
}

func (s *AdminSuite) TestRecentSessions() {
	w := s.do(http.MethodGet, "/sessions?limit=5", s.observer, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(5, s.sessions.limit)
	s.Contains(w.Body.String(), `"events_sent":3`)

	w = s.do(http.MethodGet, "/sessions?limit=0", s.observer, nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *AdminSuite) TestInjectEvent() {
	body := map[string]any{"name": "Light/Color", "type": "Vector4", "data": map[string]float32{"x": 1, "y": 0.5, "z": 0, "w": 1}}

	s.Equal(http.StatusForbidden, s.do(http.MethodPost, "/admin/events", s.observer, body).Code)

	w := s.do(http.MethodPost, "/admin/events", s.admin, body)
	s.Require().Equal(http.StatusAccepted, w.Code)
	s.Require().Len(s.relay.injected, 1)
	e := s.relay.injected[0]
	s.Equal("Light/Color", e.Name())
	s.Equal(vrevent.Vector4{X: 1, Y: 0.5, Z: 0, W: 1}, e.(vrevent.Vector4Event).Value())
}

func (s *AdminSuite) TestInjectEventRejectsBadPayload() {
	w := s.do(http.MethodPost, "/admin/events", s.admin, map[string]any{"name": "X", "type": "Int32", "data": "seven"})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/admin/events", s.admin, map[string]any{"name": "X", "type": "Matrix"})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Empty(s.relay.injected)
}

func (s *AdminSuite) TestInjectQueueFull() {
	s.relay.full = true
	w := s.do(http.MethodPost, "/admin/events", s.admin, map[string]any{"name": "X"})
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *AdminSuite) TestShutdownInjectsSentinel() {
	w := s.do(http.MethodPost, "/admin/shutdown", s.admin, nil)
	s.Require().Equal(http.StatusAccepted, w.Code)
	s.Require().Len(s.relay.injected, 1)
	s.True(vrevent.IsShutdown(s.relay.injected[0].Name()))
}

func TestOptionalBackendsReport503(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{
		Relay:       &fakeRelay{},
		Credentials: Credentials{JWTSecret: testSecret, TokenTTL: time.Hour},
	})
	tok, err := auth.IssueToken(testSecret, "ops", auth.RoleAdmin, time.Minute)
	require.NoError(t, err)

	for _, path := range []string{"/stats/events", "/sessions"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"username":"a","password":"b"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestStatsErrorIsBadGateway(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(Deps{
		Relay:       &fakeRelay{},
		Stats:       fakeStats{err: errors.New("redis down")},
		Credentials: Credentials{JWTSecret: testSecret, TokenTTL: time.Hour},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	tok, err := auth.IssueToken(testSecret, "ops", auth.RoleObserver, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/stats/events", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestServer_ServeAndShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := NewServer("127.0.0.1:0", NewRouter(Deps{Relay: &fakeRelay{}, Credentials: Credentials{JWTSecret: testSecret}}))
	require.NoError(t, srv.Listen())

	done := make(chan error, 1)
	go func() { done <- srv.Serve() }()

	resp, err := http.Get("http://" + srv.Addr().String() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}
