package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/internal/circuitbreaker"
)

// HealthChecker defines the interface for health check operations.
type HealthChecker interface {
	Check() error
}

// CheckFunc adapts a function to HealthChecker.
type CheckFunc func() error

// Check implements HealthChecker.
func (f CheckFunc) Check() error {
	return f()
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	checkers map[string]HealthChecker
	origins  *circuitbreaker.Registry
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		checkers: make(map[string]HealthChecker),
	}
}

// RegisterChecker adds a dependency check to the readiness probe.
func (h *HealthHandler) RegisterChecker(name string, checker HealthChecker) {
	h.checkers[name] = checker
}

// RegisterOriginBreakers reports the per-origin circuit breakers on the readiness probe.
// An open origin breaker does not make the service unready.
func (h *HealthHandler) RegisterOriginBreakers(registry *circuitbreaker.Registry) {
	h.origins = registry
}

// Register registers health endpoints on the router.
func (h *HealthHandler) Register(router *gin.Engine) {
	router.GET("/healthz", h.Liveness)
	router.GET("/readyz", h.Readiness)
}

// Liveness handles the liveness probe endpoint.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles the readiness probe endpoint.
func (h *HealthHandler) Readiness(c *gin.Context) {
	status := http.StatusOK
	checks := make(map[string]interface{})

	for name, checker := range h.checkers {
		if err := checker.Check(); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks[name] = "ok"
		}
	}

	if len(checks) == 0 {
		checks["service"] = "ok"
	}

	body := gin.H{
		"status": map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"checks": checks,
	}
	if h.origins != nil {
		body["origins"] = h.origins.Stats()
	}
	c.JSON(status, body)
}
