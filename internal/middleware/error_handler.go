package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/internal/domain/dto"
	"github.com/guttosm/pixie-cache/internal/logger"
)

// ErrorHandler returns a middleware that handles gin context errors.
// Errors attached by handlers are logged; if nothing was written yet a generic
// 500 response is sent.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		requestID := GetRequestID(c)

		log := logger.Logger()
		event := log.Error()
		if c.Writer.Written() && c.Writer.Status() < http.StatusInternalServerError {
			event = log.Warn()
		}
		event.
			Str("request_id", requestID).
			Str("error", err.Error()).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("Request error")

		if !c.Writer.Written() {
			errorResp := dto.NewError(dto.ErrCodeInternal, "An unexpected error occurred").
				WithRequestID(requestID)
			c.JSON(http.StatusInternalServerError, errorResp)
		}
	}
}
