// Package main is the entry point for the pixie-cache image cache service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/guttosm/pixie-cache/config"
	"github.com/guttosm/pixie-cache/internal/app"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()

	router, err := app.InitializeApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := app.NewServer(router, cfg.Server)
	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server error")
	}
}
