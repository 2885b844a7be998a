package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDefaultTimeoutConfig(t *testing.T) {
	cfg := DefaultTimeoutConfig()

	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "Request timeout", cfg.ErrorMessage)
}

func TestTimeout(t *testing.T) {
	waitForDeadline := func(c *gin.Context) {
		<-c.Request.Context().Done()
	}

	tests := []struct {
		name         string
		timeout      time.Duration
		handler      gin.HandlerFunc
		wantStatus   int
		wantBody     string
		wantDeadline bool
	}{
		{
			name:         "fast image load answers normally",
			timeout:      time.Second,
			handler:      func(c *gin.Context) { c.Data(http.StatusOK, "image/png", []byte{0x89}) },
			wantStatus:   http.StatusOK,
			wantDeadline: true,
		},
		{
			name:         "load that gives up gets a 504",
			timeout:      20 * time.Millisecond,
			handler:      waitForDeadline,
			wantStatus:   http.StatusGatewayTimeout,
			wantBody:     `"error":"timeout"`,
			wantDeadline: true,
		},
		{
			name:    "response written after the deadline is kept",
			timeout: 20 * time.Millisecond,
			handler: func(c *gin.Context) {
				waitForDeadline(c)
				c.String(http.StatusBadGateway, "origin failed")
			},
			wantStatus:   http.StatusBadGateway,
			wantBody:     "origin failed",
			wantDeadline: true,
		},
		{
			name:       "zero timeout leaves the context alone",
			timeout:    0,
			handler:    func(c *gin.Context) { c.Status(http.StatusNoContent) },
			wantStatus: http.StatusNoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hasDeadline bool
			router := gin.New()
			router.Use(RequestID(), TimeoutWithDuration(tt.timeout))
			router.GET("/api/images", func(c *gin.Context) {
				_, hasDeadline = c.Request.Context().Deadline()
				tt.handler(c)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.Equal(t, tt.wantDeadline, hasDeadline)
		})
	}
}

func TestTimeout_CustomMessage(t *testing.T) {
	router := gin.New()
	router.Use(Timeout(TimeoutConfig{Timeout: 10 * time.Millisecond, ErrorMessage: "origin too slow"}))
	router.GET("/api/images", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})

	req := httptest.NewRequest(http.MethodGet, "/api/images", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "origin too slow")
}
