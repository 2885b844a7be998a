// Package app provides application initialization and dependency injection.
package app

import (
	"github.com/gin-gonic/gin"
	"github.com/guttosm/pixie-cache/config"
)

// InitializeApp creates and wires all application dependencies.
func InitializeApp(cfg config.Config) (*gin.Engine, error) {
	InitializeLogger(cfg.Logging)

	services, err := InitializeServices(cfg)
	if err != nil {
		return nil, err
	}

	return InitializeRouter(services, cfg.Server), nil
}
