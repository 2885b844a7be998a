package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/internal/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler_Liveness(t *testing.T) {
	router := gin.New()
	NewHealthHandler().Register(router)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthHandler_Readiness(t *testing.T) {
	tests := []struct {
		name           string
		setupHandler   func() *HealthHandler
		expectedStatus int
		expectedState  string
		validate       func(*testing.T, map[string]interface{})
	}{
		{
			name:           "no checkers",
			setupHandler:   NewHealthHandler,
			expectedStatus: http.StatusOK,
			expectedState:  "ok",
		},
		{
			name: "healthy cache directory",
			setupHandler: func() *HealthHandler {
				h := NewHealthHandler()
				h.RegisterChecker("cache_directory", CheckFunc(func() error { return nil }))
				return h
			},
			expectedStatus: http.StatusOK,
			expectedState:  "ok",
		},
		{
			name: "missing cache directory",
			setupHandler: func() *HealthHandler {
				h := NewHealthHandler()
				h.RegisterChecker("cache_directory", CheckFunc(func() error {
					return errors.New("cache directory is missing")
				}))
				return h
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedState:  "degraded",
			validate: func(t *testing.T, body map[string]interface{}) {
				checks := body["checks"].(map[string]interface{})
				assert.Equal(t, "cache directory is missing", checks["cache_directory"])
			},
		},
		{
			name: "open origin breaker is reported but not fatal",
			setupHandler: func() *HealthHandler {
				registry := circuitbreaker.NewRegistry(circuitbreaker.Config{
					FailureThreshold: 1,
					Timeout:          time.Minute,
				})
				_ = registry.Get("img.example.com").Execute(context.Background(), func() error {
					return errors.New("connection refused")
				})
				h := NewHealthHandler()
				h.RegisterOriginBreakers(registry)
				return h
			},
			expectedStatus: http.StatusOK,
			expectedState:  "ok",
			validate: func(t *testing.T, body map[string]interface{}) {
				origins := body["origins"].([]interface{})
				require.Len(t, origins, 1)
				origin := origins[0].(map[string]interface{})
				assert.Equal(t, "img.example.com", origin["name"])
				assert.Equal(t, "open", origin["state"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			tt.setupHandler().Register(router)

			req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedState, body["status"])
			if tt.validate != nil {
				tt.validate(t, body)
			}
		})
	}
}
