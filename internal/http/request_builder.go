package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/internal/domain/dto"
	"github.com/guttosm/pixie-cache/internal/middleware"
	"github.com/guttosm/pixie-cache/internal/service"
)

// Validator is implemented by request DTOs that check their own fields.
type Validator interface {
	Validate() error
}

// BindJSON decodes the JSON body into a new T and validates it if T implements Validator.
func BindJSON[T any](c *gin.Context) (*T, error) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, err
	}
	return validate(&req)
}

// BindQuery decodes query parameters into a new T and validates it if T implements Validator.
func BindQuery[T any](c *gin.Context) (*T, error) {
	var req T
	if err := c.ShouldBindQuery(&req); err != nil {
		return nil, err
	}
	return validate(&req)
}

func validate[T any](req *T) (*T, error) {
	if v, ok := any(req).(Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// ResponseBuilder writes JSON envelopes and raw image responses.
type ResponseBuilder struct {
	c *gin.Context
}

// NewResponseBuilder creates a new response builder for the given context.
func NewResponseBuilder(c *gin.Context) *ResponseBuilder {
	return &ResponseBuilder{c: c}
}

// Success sends data in a dto.SuccessResponse envelope.
func (b *ResponseBuilder) Success(statusCode int, data interface{}) {
	b.c.JSON(statusCode, dto.SuccessResponse{
		Data:      data,
		RequestID: middleware.GetRequestID(b.c),
		Timestamp: time.Now(),
	})
}

// SuccessOK sends a 200 OK response with the given data.
func (b *ResponseBuilder) SuccessOK(data interface{}) {
	b.Success(http.StatusOK, data)
}

// Image sends raw image bytes with a sniffed content type and the cache status header.
func (b *ResponseBuilder) Image(data []byte, fromCache bool) {
	status := "miss"
	if fromCache {
		status = "hit"
	}
	b.c.Header(middleware.CacheStatusHeader, status)
	b.c.Data(http.StatusOK, service.DetectContentType(data), data)
}

// Error sends an error response and aborts the chain. A non-nil err is attached
// to the gin context so the error handler middleware logs it.
func (b *ResponseBuilder) Error(statusCode int, message string, err error) {
	if err != nil {
		_ = b.c.Error(err)
	}
	b.c.AbortWithStatusJSON(statusCode,
		dto.NewError(dto.ErrCodeFromStatus(statusCode), message).WithRequestID(middleware.GetRequestID(b.c)))
}

// BadRequest sends a 400 carrying err's message. Client mistakes are not logged.
func (b *ResponseBuilder) BadRequest(err error) {
	b.Error(http.StatusBadRequest, err.Error(), nil)
}
