package main

import (
	"flag"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/client"
	"github.com/papercomputeco/loom/config"
	"github.com/papercomputeco/loom/gateway"
	"github.com/papercomputeco/loom/pkg/logger"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to TOML config (default: local Ollama)")
	listenAddr := flag.String("listen", "", "Address to listen on (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Set up logger
	logger := logger.New(*debug)
	defer logger.Sync()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("failed to load config", zap.Error(err))
		}
		cfg = loaded
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}

	logger.Info("loomd starting",
		zap.String("listen", cfg.Listen),
		zap.String("active_provider", cfg.Active),
		zap.Bool("debug", *debug),
	)

	cl, err := client.NewFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create client", zap.Error(err))
	}

	g := gateway.New(gateway.Config{ListenAddr: cfg.Listen}, cl, logger)
	defer g.Close()

	if err := g.Run(); err != nil {
		logger.Fatal("gateway server failed", zap.Error(err))
	}
}
