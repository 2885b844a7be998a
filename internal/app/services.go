package app

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/guttosm/pixie-cache/config"
	"github.com/guttosm/pixie-cache/internal/circuitbreaker"
	"github.com/guttosm/pixie-cache/internal/domain/model"
	"github.com/guttosm/pixie-cache/internal/service"
	"github.com/rs/zerolog/log"
)

// ServiceComponents holds service-related components.
type ServiceComponents struct {
	Coordinator *service.Coordinator
	Fetcher     *service.HTTPFetcher
}

// InitializeServices builds the fetcher and the cache coordinator on the OS filesystem.
func InitializeServices(cfg config.Config) (*ServiceComponents, error) {
	settings, err := SettingsFromConfig(cfg.Cache)
	if err != nil {
		return nil, err
	}
	return NewServiceComponents(osfs.New(settings.RootDir), cfg.Fetch, settings), nil
}

// NewServiceComponents wires the services over fsys, which is rooted at the cache root.
func NewServiceComponents(fsys billy.Filesystem, cfg config.FetchConfig, settings model.CacheSettings) *ServiceComponents {
	fetcher := service.NewHTTPFetcher(service.HTTPFetcherConfig{
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
		UserAgent:    cfg.UserAgent,
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreakerFailureThreshold,
			SuccessThreshold: cfg.CircuitBreakerSuccessThreshold,
			Timeout:          cfg.CircuitBreakerTimeout,
		},
	})

	coordinator := service.NewCoordinator(fsys, fetcher, settings)

	log.Info().
		Str("location", settings.Location.String()).
		Str("root", settings.RootDir).
		Str("directory", settings.DirectoryName).
		Bool("single_flight", settings.SingleFlight).
		Msg("Image cache initialized")

	return &ServiceComponents{
		Coordinator: coordinator,
		Fetcher:     fetcher,
	}
}

// SettingsFromConfig validates the cache configuration and resolves the cache root.
func SettingsFromConfig(cfg config.CacheConfig) (model.CacheSettings, error) {
	location, err := model.ParseStorageLocation(cfg.Location)
	if err != nil {
		return model.CacheSettings{}, err
	}
	format, err := model.ParseImageFormat(cfg.ImageFormat)
	if err != nil {
		return model.CacheSettings{}, err
	}
	if err := service.ValidateKey(cfg.DirectoryName); err != nil {
		return model.CacheSettings{}, fmt.Errorf("invalid cache directory name: %w", err)
	}

	if cfg.MemoryLimitMB <= 0 || cfg.MemoryLimitMB > model.MaxMemoryLimitMB {
		return model.CacheSettings{}, fmt.Errorf("invalid memory limit %d MiB: must be between 1 and %d",
			cfg.MemoryLimitMB, model.MaxMemoryLimitMB)
	}

	root := cfg.RootDir
	if root == "" {
		root, err = os.UserCacheDir()
		if err != nil {
			return model.CacheSettings{}, fmt.Errorf("resolve user cache dir: %w", err)
		}
	}

	settings := service.DefaultSettings()
	settings.Location = location
	settings.RootDir = root
	settings.DirectoryName = cfg.DirectoryName
	settings.Format = format
	settings.MemoryLimitMB = cfg.MemoryLimitMB
	settings.MemoryCountLimit = cfg.MemoryCountLimit
	settings.DebugLogging = cfg.DebugLogging
	settings.SingleFlight = cfg.SingleFlight
	return settings, nil
}
