package provider

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/config"
)

// FromConfig builds the provider implementation described by one config
// entry.
func FromConfig(name string, cfg config.Provider, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case config.TypeOllama:
		return NewOllama(name, cfg.Endpoint, cfg.Model, cfg.Timeout.Duration, logger), nil
	case config.TypeOpenAI:
		return NewOpenAI(name, cfg.Endpoint, cfg.Key(), logger), nil
	case config.TypeAnthropic:
		return NewAnthropic(name, cfg.Endpoint, cfg.Key(), logger), nil
	case config.TypeGemini:
		return NewGemini(name, cfg.Endpoint, cfg.Key(), logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}
}
