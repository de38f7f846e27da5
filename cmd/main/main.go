package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"pomona/downloader/internal/config"
	"pomona/downloader/internal/container"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.Info("Starting pomological watercolor downloader...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", cfg.Log.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.Info("Configuration loaded successfully")

	app, err := container.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// a partial run is still a finished run
	if _, err := app.Run(ctx); err != nil {
		log.Warnf("Run ended early: %v", err)
		return
	}

	log.Info("Application finished successfully")
}
