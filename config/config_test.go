package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papercomputeco/loom/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loom.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen = ":9000"
active = "local"

[providers.local]
type = "ollama"
endpoint = "http://localhost:11434"
model = "llama3"
timeout = "90s"

[providers.claude]
type = "anthropic"
api_key = "sk-ant"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "local", cfg.Active)
	require.Len(t, cfg.Providers, 2)

	local := cfg.Providers["local"]
	assert.Equal(t, config.TypeOllama, local.Type)
	assert.Equal(t, "llama3", local.Model)
	assert.Equal(t, 90*time.Second, local.Timeout.Duration)

	assert.Equal(t, "sk-ant", cfg.Providers["claude"].Key())
}

func TestLoadDefaultsListenAddr(t *testing.T) {
	path := writeConfig(t, `
active = "local"

[providers.local]
type = "ollama"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.Listen)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
active = "local"

[providers.local]
type = "ollama"
timeout = "ninety seconds"
`)

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "no providers",
			cfg:  config.Config{Active: "x"},
			want: "no providers",
		},
		{
			name: "unknown type",
			cfg: config.Config{
				Active:    "a",
				Providers: map[string]config.Provider{"a": {Type: "mystery"}},
			},
			want: "unknown type",
		},
		{
			name: "no active",
			cfg: config.Config{
				Providers: map[string]config.Provider{"a": {Type: config.TypeOllama}},
			},
			want: "no active provider",
		},
		{
			name: "active not in table",
			cfg: config.Config{
				Active:    "b",
				Providers: map[string]config.Provider{"a": {Type: config.TypeOllama}},
			},
			want: "not in the provider table",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "ollama", cfg.Active)
}

func TestKeyPrefersEnvironment(t *testing.T) {
	t.Setenv("LOOM_TEST_API_KEY", "from-env")

	p := config.Provider{APIKey: "literal", APIKeyEnv: "LOOM_TEST_API_KEY"}
	assert.Equal(t, "from-env", p.Key())

	p.APIKeyEnv = "LOOM_TEST_UNSET_KEY"
	assert.Equal(t, "literal", p.Key())
}
