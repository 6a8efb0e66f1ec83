package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/vovakirdan/kvchat/internal/app"
	"github.com/vovakirdan/kvchat/internal/config"
	"github.com/vovakirdan/kvchat/internal/log"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config file")
		addr       = flag.String("addr", "", "gateway listen address (overrides config)")
		logLevel   = flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
		username   = flag.String("username", "", "display name (overrides config)")
	)
	flag.Parse()

	bootLogger := log.New("info")

	cfg, path, err := config.Load(bootLogger, *configPath)
	if err != nil {
		bootLogger.Error().Err(err).Str("path", path).Msg("failed to load config")
		os.Exit(1)
	}

	if *addr != "" {
		cfg.Addr = *addr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *username != "" {
		cfg.Username = *username
	}

	logger := log.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to start")
		os.Exit(1)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("kvchat gateway listening")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("gateway exited with error")
		os.Exit(1)
	}
	logger.Info().Msg("stopped")
}
