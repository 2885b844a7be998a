package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/internal/domain/dto"
	"github.com/rs/zerolog/log"
)

// TimeoutConfig holds configuration for the timeout middleware.
type TimeoutConfig struct {
	// Timeout bounds the request context. Zero or less disables the middleware.
	Timeout time.Duration
	// ErrorMessage is sent with the 504 response.
	ErrorMessage string
}

// DefaultTimeoutConfig returns the defaults used by the router.
func DefaultTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Timeout:      30 * time.Second,
		ErrorMessage: "Request timeout",
	}
}

// Timeout puts a deadline on the request context and runs the chain inline.
// Handlers watch the context themselves (an image load waits on it). If one
// returns without writing after the deadline passed, a 504 is sent for it.
func Timeout(cfg TimeoutConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Timeout <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if c.Writer.Written() || !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return
		}
		log.Warn().
			Str("request_id", GetRequestID(c)).
			Str("path", c.Request.URL.Path).
			Dur("timeout", cfg.Timeout).
			Msg("Request deadline exceeded")
		c.AbortWithStatusJSON(http.StatusGatewayTimeout,
			dto.NewError(dto.ErrCodeTimeout, cfg.ErrorMessage).WithRequestID(GetRequestID(c)))
	}
}

// TimeoutWithDuration is Timeout with the default message.
func TimeoutWithDuration(timeout time.Duration) gin.HandlerFunc {
	cfg := DefaultTimeoutConfig()
	cfg.Timeout = timeout
	return Timeout(cfg)
}
