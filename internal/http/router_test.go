package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/guttosm/pixie-cache/internal/middleware"
	"github.com/stretchr/testify/assert"
)

func TestNewRouter_Routes(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{name: "liveness", method: http.MethodGet, path: "/healthz", wantStatus: http.StatusOK},
		{name: "readiness", method: http.MethodGet, path: "/readyz", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "cache stats", method: http.MethodGet, path: "/api/cache", wantStatus: http.StatusOK},
		{name: "cache size", method: http.MethodGet, path: "/api/cache/size", wantStatus: http.StatusOK},
		{name: "cache config", method: http.MethodGet, path: "/api/cache/config", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/unknown", wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.path, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		})
	}
}

func TestNewRouter_CORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/cache", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodDelete)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_RateLimit(t *testing.T) {
	env := newTestEnv(t)
	cfg := DefaultRouterConfig()
	cfg.RateLimit = 2
	router := NewRouter(NewHealthHandler(), cfg, NewCacheRoutes(NewCacheHandler(env.coord)))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/cache", nil)
		req.RemoteAddr = "10.1.1.1:5555"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
