package app

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/config"
	"github.com/guttosm/pixie-cache/internal/domain/model"
	"github.com/guttosm/pixie-cache/internal/http"
)

var errCacheDirectoryMissing = errors.New("cache directory is missing")

// InitializeRouter builds the handlers, health checks and router.
func InitializeRouter(services *ServiceComponents, cfg config.ServerConfig) *gin.Engine {
	coord := services.Coordinator

	healthHandler := http.NewHealthHandler()
	healthHandler.RegisterChecker("cache_directory", http.CheckFunc(func() error {
		if coord.Settings().Location == model.LocationDisk && !coord.DirectoryReady() {
			return errCacheDirectoryMissing
		}
		return nil
	}))
	healthHandler.RegisterOriginBreakers(services.Fetcher.Breakers())

	routerCfg := http.RouterConfig{
		RateLimit:      cfg.RateLimit,
		RateWindow:     cfg.RateWindow,
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
	}

	return http.NewRouter(healthHandler, routerCfg,
		http.NewImageRoutes(http.NewImageHandler(coord)),
		http.NewCacheRoutes(http.NewCacheHandler(coord)),
	)
}
