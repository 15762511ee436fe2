// Package conf resolves CLI configuration into a ready client.
package conf

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/client"
	"github.com/papercomputeco/loom/config"
)

// DefaultPath is consulted when no --config flag is given.
const DefaultPath = "loom.toml"

// BuildClient loads the TOML config (falling back to the local-Ollama
// default when neither the flag nor loom.toml exists) and constructs the
// client. An empty provider leaves the config's active selection in place.
func BuildClient(configPath, provider string, logger *zap.Logger) (*client.Client, error) {
	cfg, err := resolve(configPath)
	if err != nil {
		return nil, err
	}
	if provider != "" {
		cfg.Active = provider
	}
	return client.NewFromConfig(cfg, logger)
}

func resolve(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		cfg, err := config.Load(DefaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", DefaultPath, err)
		}
		return cfg, nil
	}
	return config.Default(), nil
}
