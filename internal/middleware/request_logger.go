package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/internal/logger"
)

// CacheStatusHeader reports whether an image came from the cache ("hit") or the origin ("miss").
const CacheStatusHeader = "X-Cache"

// RequestLogger returns a middleware that logs HTTP request details in JSON format.
// It logs: request ID, method, path, status code, latency, IP, user agent and cache status.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		ctx := logger.Logger().With().
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status_code", statusCode).
			Int64("duration_ms", latency.Milliseconds()).
			Str("ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent())
		if cacheStatus := c.Writer.Header().Get(CacheStatusHeader); cacheStatus != "" {
			ctx = ctx.Str("cache", cacheStatus)
		}
		log := ctx.Logger()

		switch getLogLevel(statusCode) {
		case "error":
			log.Error().Msg("HTTP request")
		case "warn":
			log.Warn().Msg("HTTP request")
		default:
			log.Info().Msg("HTTP request")
		}
	}
}

// getLogLevel returns the log level based on HTTP status code.
func getLogLevel(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "error"
	case statusCode >= 400:
		return "warn"
	default:
		return "info"
	}
}
