package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"calvino-service/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		db   Pinger
		want int
	}{
		{"no database", nil, http.StatusOK},
		{"database up", fakePinger{}, http.StatusOK},
		{"database down", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", healthCheck(tt.db))

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSetupRouter_UnknownRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupRouter(r, &Handlers{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"route not found"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewEngine_ClientIP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		proxies   []string
		forwarded string
		want      string
	}{
		{"untrusted peer cannot pick its address", nil, "1.1.1.1", "203.0.113.9"},
		{"untrusted peer cannot rotate its address", nil, "2.2.2.2", "203.0.113.9"},
		{"trusted proxy forwards client address", []string{"203.0.113.0/24"}, "1.1.1.1", "1.1.1.1"},
		{"rightmost untrusted hop wins", []string{"203.0.113.0/24"}, "1.1.1.1, 2.2.2.2", "2.2.2.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := newEngine(config.AppConfig{TrustedProxies: tt.proxies})
			require.NoError(t, err)
			engine.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			req.RemoteAddr = "203.0.113.9:4321"
			req.Header.Set("X-Forwarded-For", tt.forwarded)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Body.String())
		})
	}

	_, err := newEngine(config.AppConfig{TrustedProxies: []string{"not-an-ip"}})
	assert.Error(t, err)
}

func TestHubNotifier_NilHub(t *testing.T) {
	n := &hubNotifier{}
	assert.NotPanics(t, func() { n.SessionRevoked(1, "sid", "logout") })
}
