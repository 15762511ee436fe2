// Package config loads the loom configuration from a TOML file: the gateway
// listen address, the provider table, and which provider starts active.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Provider types understood by the factory.
const (
	TypeOllama    = "ollama"
	TypeOpenAI    = "openai"
	TypeAnthropic = "anthropic"
	TypeGemini    = "gemini"
)

// Duration wraps time.Duration for TOML decoding from strings like "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Provider is one backend entry in the provider table.
type Provider struct {
	// Type selects the adapter: ollama, openai, anthropic, or gemini.
	Type string `toml:"type"`

	// Endpoint is the base URL; empty uses the adapter's default host.
	Endpoint string `toml:"endpoint"`

	// Model is the default target model for requests that name none.
	Model string `toml:"model"`

	// APIKey is the literal credential; APIKeyEnv names an environment
	// variable to read instead and wins when both are set.
	APIKey    string `toml:"api_key"`
	APIKeyEnv string `toml:"api_key_env"`

	// Timeout bounds ordinary requests (status probes use their own,
	// much shorter timeout).
	Timeout Duration `toml:"timeout"`
}

// Key resolves the credential for this provider.
func (p Provider) Key() string {
	if p.APIKeyEnv != "" {
		if v := os.Getenv(p.APIKeyEnv); v != "" {
			return v
		}
	}
	return p.APIKey
}

// Config is the full loom configuration.
type Config struct {
	// Listen is the gateway listen address (e.g. ":8090").
	Listen string `toml:"listen"`

	// Active names the provider that starts selected.
	Active string `toml:"active"`

	Providers map[string]Provider `toml:"providers"`
}

// Default returns a configuration pointing at a local Ollama server.
func Default() *Config {
	return &Config{
		Listen: ":8090",
		Active: "ollama",
		Providers: map[string]Provider{
			"ollama": {
				Type:     TypeOllama,
				Endpoint: "http://localhost:11434",
			},
		},
	}
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8090"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the provider table and the active selection.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("no providers configured")
	}
	for name, p := range c.Providers {
		switch p.Type {
		case TypeOllama, TypeOpenAI, TypeAnthropic, TypeGemini:
		default:
			return fmt.Errorf("provider %q has unknown type %q", name, p.Type)
		}
	}
	if c.Active == "" {
		return fmt.Errorf("no active provider configured")
	}
	if _, ok := c.Providers[c.Active]; !ok {
		return fmt.Errorf("active provider %q is not in the provider table", c.Active)
	}
	return nil
}
