package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/internal/domain/dto"
	"github.com/guttosm/pixie-cache/internal/service"
)

// ImageLoader starts read-through image loads.
type ImageLoader interface {
	Load(ctx context.Context, url, key string, opts ...service.ControllerOption) *service.EntryController
}

// ImageHandler serves cached images.
type ImageHandler struct {
	loader ImageLoader
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(loader ImageLoader) *ImageHandler {
	return &ImageHandler{loader: loader}
}

// GetImage handles GET /api/images?url=...&key=...
// The image comes from the active cache tier when present, otherwise it is
// fetched from url and cached under key.
func (h *ImageHandler) GetImage(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BindQuery[dto.ImageRequest](c)
	if err != nil {
		builder.BadRequest(err)
		return
	}
	if err := service.ValidateKey(req.Key); err != nil {
		builder.BadRequest(err)
		return
	}

	ctx := c.Request.Context()
	ec := h.loader.Load(ctx, req.URL, req.Key)
	defer ec.Close()

	data, err := ec.Wait(ctx)
	if err != nil {
		h.writeLoadError(c, builder, err)
		return
	}

	builder.Image(data, ec.FromCache())
}

func (h *ImageHandler) writeLoadError(c *gin.Context, builder *ResponseBuilder, err error) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		builder.Error(http.StatusGatewayTimeout, "Timed out loading image", err)
	case errors.Is(err, context.Canceled):
		// Client went away; nobody is listening for a response.
		c.Abort()
	case errors.Is(err, service.ErrInvalidURL):
		builder.BadRequest(err)
	case errors.Is(err, service.ErrTransport), errors.Is(err, service.ErrDecode):
		builder.Error(http.StatusBadGateway, err.Error(), err)
	default:
		builder.Error(http.StatusInternalServerError, "Failed to load image", err)
	}
}
