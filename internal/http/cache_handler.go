package http

import (
	"errors"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/internal/domain/dto"
	"github.com/guttosm/pixie-cache/internal/domain/model"
	"github.com/guttosm/pixie-cache/internal/service"
)

// CacheAdmin is the management surface of the cache coordinator.
type CacheAdmin interface {
	Settings() model.CacheSettings
	Stats() model.CacheStats
	DirectorySizeBytes() int64
	ClearAll() int
	ConfigureForDisk(directoryName string, format model.ImageFormat) error
	ConfigureForMemory(limitMB int)
	SetMemoryCountLimit(n int)
	SetDebugLogging(enabled bool)
}

// CacheHandler exposes cache statistics and configuration.
type CacheHandler struct {
	cache CacheAdmin
}

// NewCacheHandler creates a new CacheHandler.
func NewCacheHandler(cache CacheAdmin) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// GetStats handles GET /api/cache.
func (h *CacheHandler) GetStats(c *gin.Context) {
	NewResponseBuilder(c).SuccessOK(h.cache.Stats())
}

// GetSize handles GET /api/cache/size.
func (h *CacheHandler) GetSize(c *gin.Context) {
	size := h.cache.DirectorySizeBytes()
	NewResponseBuilder(c).SuccessOK(dto.CacheSizeResponse{
		Bytes: size,
		Human: humanize.IBytes(uint64(size)),
	})
}

// Clear handles DELETE /api/cache. Only the disk tier is cleared.
func (h *CacheHandler) Clear(c *gin.Context) {
	removed := h.cache.ClearAll()
	NewResponseBuilder(c).SuccessOK(dto.ClearCacheResponse{Removed: removed})
}

// GetConfig handles GET /api/cache/config.
func (h *CacheHandler) GetConfig(c *gin.Context) {
	NewResponseBuilder(c).SuccessOK(h.cache.Settings())
}

// ConfigureDisk handles PUT /api/cache/config/disk.
func (h *CacheHandler) ConfigureDisk(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BindJSON[dto.ConfigureDiskRequest](c)
	if err != nil {
		builder.BadRequest(err)
		return
	}
	format, _ := req.Format()

	if err := h.cache.ConfigureForDisk(req.DirectoryName, format); err != nil {
		if errors.Is(err, service.ErrInvalidKey) {
			builder.BadRequest(err)
			return
		}
		builder.Error(http.StatusInternalServerError, "Failed to create cache directory", err)
		return
	}
	builder.SuccessOK(h.cache.Settings())
}

// ConfigureMemory handles PUT /api/cache/config/memory.
func (h *CacheHandler) ConfigureMemory(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BindJSON[dto.ConfigureMemoryRequest](c)
	if err != nil {
		builder.BadRequest(err)
		return
	}

	if req.CountLimit != nil {
		h.cache.SetMemoryCountLimit(*req.CountLimit)
	}
	h.cache.ConfigureForMemory(req.LimitMB)
	builder.SuccessOK(h.cache.Settings())
}

// ConfigureLogging handles PUT /api/cache/config/logging.
func (h *CacheHandler) ConfigureLogging(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BindJSON[dto.LoggingRequest](c)
	if err != nil {
		builder.BadRequest(err)
		return
	}

	h.cache.SetDebugLogging(*req.Debug)
	builder.SuccessOK(h.cache.Settings())
}
