package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/renatogalera/worldgen/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateConfigAt(t *testing.T) {
	t.Parallel()

	t.Run("writes defaults on first run", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "worldgen", "config.yaml")
		cfg, err := config.LoadOrCreateConfigAt(path)
		require.NoError(t, err)
		assert.Equal(t, config.DefaultProvider, cfg.Provider)
		assert.Equal(t, config.DefaultAddr, cfg.Server.Addr)
		assert.Equal(t, filepath.Join(filepath.Dir(path), "worlds.yaml"), cfg.StorePath)
		require.NoError(t, cfg.Validate())
		assert.FileExists(t, path)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("provider: ollama\nlanguage: es\nserver:\n  addr: 0.0.0.0:9000\n"), 0o600))
		cfg, err := config.LoadOrCreateConfigAt(path)
		require.NoError(t, err)
		assert.Equal(t, "ollama", cfg.Provider)
		assert.Equal(t, "es", cfg.Language)
		assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
		assert.Equal(t, config.DefaultEndpoint, cfg.Endpoint)
	})

	t.Run("rejects broken yaml", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("provider: [unterminated"), 0o600))
		_, err := config.LoadOrCreateConfigAt(path)
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := config.Default(t.TempDir())
	cfg.Language = "xx"
	require.Error(t, cfg.Validate())

	cfg = config.Default(t.TempDir())
	cfg.Provider = ""
	require.Error(t, cfg.Validate())

	cfg = config.Default(t.TempDir())
	cfg.Providers["fal"] = config.ProviderSettings{BaseURL: "not a url"}
	require.Error(t, cfg.Validate())
}

func TestMergeConfiguration(t *testing.T) {
	t.Parallel()

	cfg := config.Default(t.TempDir())
	cm := config.NewConfigManager(cfg)
	cm.RegisterFlag("provider", "anthropic")
	cm.RegisterFlag("language", "")
	cm.RegisterFlag("server.addr", "127.0.0.1:9999")
	cm.RegisterFlag("timeoutSeconds", 30)
	merged := cm.MergeConfiguration()

	assert.Equal(t, "anthropic", merged.Provider)
	assert.Equal(t, config.DefaultLanguage, merged.Language)
	assert.Equal(t, "127.0.0.1:9999", merged.Server.Addr)
	assert.Equal(t, 30, merged.TimeoutSeconds)
}

func TestGetProviderSettings(t *testing.T) {
	t.Parallel()

	cfg := config.Default(t.TempDir())
	cfg.Providers["fal"] = config.ProviderSettings{Model: "custom/model"}
	ps := cfg.GetProviderSettings("fal", config.ProviderSettings{Model: "dflt", BaseURL: "https://fal.run"})
	assert.Equal(t, "custom/model", ps.Model)
	assert.Equal(t, "https://fal.run", ps.BaseURL)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("WORLDGEN_TEST_KEY", " from-env ")

	key, err := config.ResolveAPIKey("", "WORLDGEN_TEST_KEY", "from-config", "fal")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	key, err = config.ResolveAPIKey("from-flag", "WORLDGEN_TEST_KEY", "from-config", "fal")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", key)

	key, err = config.ResolveAPIKey("", "WORLDGEN_UNSET_KEY", "from-config", "fal")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	_, err = config.ResolveAPIKey("", "WORLDGEN_UNSET_KEY", "", "fal")
	require.ErrorIs(t, err, config.ErrMissingAPIKey)
}
