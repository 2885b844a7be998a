package app

import (
	"github.com/guttosm/pixie-cache/config"
	"github.com/guttosm/pixie-cache/internal/logger"
)

// InitializeLogger initializes the global logger.
func InitializeLogger(cfg config.LoggingConfig) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	logger.Init(level, cfg.Pretty)
}
