package main

import (
	"log/slog"
	"os"

	"docarchive/internal/app"
	"docarchive/internal/config"
	"docarchive/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Setup(os.Stdout, "info", false)
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger.Setup(os.Stdout, cfg.LogLevel, os.Getenv("NO_COLOR") != "")

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
