// Package config provides configuration management for the image cache service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete application configuration.
type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Fetch   FetchConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	RateLimit      int
	RateWindow     time.Duration
	RequestTimeout time.Duration
	CORSOrigins    []string
}

// CacheConfig holds the initial cache tier configuration.
type CacheConfig struct {
	// Location is "disk" or "memory".
	Location string
	// RootDir is the parent of the cache directory. Empty means the user cache dir.
	RootDir string
	// DirectoryName is the name of the cache directory under RootDir.
	DirectoryName string
	// ImageFormat is "jpeg" or "png".
	ImageFormat      string
	MemoryLimitMB    int
	MemoryCountLimit int
	DebugLogging     bool
	// SingleFlight coalesces concurrent fetches for the same key.
	SingleFlight bool
}

// FetchConfig holds origin fetch configuration.
type FetchConfig struct {
	// Timeout of zero leaves the transport default in place.
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
	// CircuitBreaker configuration, applied per origin host.
	CircuitBreakerFailureThreshold int
	CircuitBreakerSuccessThreshold int
	CircuitBreakerTimeout          time.Duration
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// Load creates a Config from environment variables.
func Load() Config {
	return Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RateLimit:      getEnvInt("RATE_LIMIT", 100),
			RateWindow:     getEnvDuration("RATE_WINDOW", time.Minute),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
			CORSOrigins:    parseCORSOrigins(os.Getenv("CORS_ORIGINS")),
		},
		Cache: CacheConfig{
			Location:         getEnv("CACHE_LOCATION", "disk"),
			RootDir:          getEnv("CACHE_ROOT_DIR", ""),
			DirectoryName:    getEnv("CACHE_DIRECTORY", "PixieImageCache"),
			ImageFormat:      getEnv("CACHE_IMAGE_FORMAT", "jpeg"),
			MemoryLimitMB:    getEnvInt("CACHE_MEMORY_LIMIT_MB", 50),
			MemoryCountLimit: getEnvInt("CACHE_MEMORY_COUNT_LIMIT", 50),
			DebugLogging:     getEnvBool("CACHE_DEBUG_LOGGING", true),
			SingleFlight:     getEnvBool("CACHE_SINGLE_FLIGHT", true),
		},
		Fetch: FetchConfig{
			Timeout:                        getEnvDuration("FETCH_TIMEOUT", 0),
			MaxBodyBytes:                   int64(getEnvInt("FETCH_MAX_BYTES", 32<<20)),
			UserAgent:                      getEnv("FETCH_USER_AGENT", "pixie-cache/1.0"),
			CircuitBreakerFailureThreshold: getEnvInt("CIRCUIT_BREAKER_FAILURE_THRESHOLD", 5),
			CircuitBreakerSuccessThreshold: getEnvInt("CIRCUIT_BREAKER_SUCCESS_THRESHOLD", 2),
			CircuitBreakerTimeout:          getEnvDuration("CIRCUIT_BREAKER_TIMEOUT", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseCORSOrigins(s string) []string {
	// Default origins for local development
	defaults := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if s == "" {
		return defaults
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts)+len(defaults))
	result = append(result, defaults...)
	for _, p := range parts {
		if origin := strings.TrimSpace(p); origin != "" {
			result = append(result, origin)
		}
	}
	return result
}
