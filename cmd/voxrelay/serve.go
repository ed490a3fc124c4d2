package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alkime/voxrelay/internal/config"
	"github.com/alkime/voxrelay/internal/logger"
	"github.com/alkime/voxrelay/internal/server"
)

// ServeCmd runs the HTTP API.
type ServeCmd struct {
	Port string `flag:"" help:"Listen port (overrides PORT)"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if c.Port != "" {
		cfg.Port = c.Port
	}

	log := logger.SetupLogger(cfg)

	log.Info("starting voxrelay server",
		"env", cfg.Env,
		"port", cfg.Port,
		"relay", cfg.RelayURL,
	)

	proc, err := newPipeline(cfg, log)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, proc, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Run(ctx)
}
