package http

import (
	"github.com/gin-gonic/gin"
)

// RouteGroup defines a group of routes that can be registered.
type RouteGroup interface {
	// RegisterRoutes registers routes to the given router group.
	RegisterRoutes(rg *gin.RouterGroup)
}

// ImageRoutes registers the image endpoint.
type ImageRoutes struct {
	handler *ImageHandler
}

// NewImageRoutes creates a new ImageRoutes instance.
func NewImageRoutes(handler *ImageHandler) *ImageRoutes {
	return &ImageRoutes{handler: handler}
}

// RegisterRoutes implements RouteGroup.
func (r *ImageRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/images", r.handler.GetImage)
}

// CacheRoutes registers the cache management endpoints.
type CacheRoutes struct {
	handler *CacheHandler
}

// NewCacheRoutes creates a new CacheRoutes instance.
func NewCacheRoutes(handler *CacheHandler) *CacheRoutes {
	return &CacheRoutes{handler: handler}
}

// RegisterRoutes implements RouteGroup.
func (r *CacheRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	cache := rg.Group("/cache")
	cache.GET("", r.handler.GetStats)
	cache.DELETE("", r.handler.Clear)
	cache.GET("/size", r.handler.GetSize)
	cache.GET("/config", r.handler.GetConfig)
	cache.PUT("/config/disk", r.handler.ConfigureDisk)
	cache.PUT("/config/memory", r.handler.ConfigureMemory)
	cache.PUT("/config/logging", r.handler.ConfigureLogging)
}
