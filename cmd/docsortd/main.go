package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"docsort/internal/config"
	"docsort/internal/daemon"
	"docsort/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewForPaths(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		log.Fatalf("create daemon: %v", err)
	}
	if err := d.Start(ctx); err != nil {
		log.Fatalf("start daemon: %v", err)
	}

	<-ctx.Done()
	logger.Info("docsortd shutting down")
	d.Stop()
}
