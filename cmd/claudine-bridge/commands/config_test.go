package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/claudine-bridge/internal/app"
)

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := loadConfig("", nil, environ())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:4000", cfg.Server.Listen)
	assert.Equal(t, int64(32<<20), cfg.Server.MaxRequestBytes)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, app.TokenStorageTypeNone, cfg.Auth.Storage)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Models)
}

func TestLoadConfigLayers(t *testing.T) {
	path := writeConfig(t, `
[server]
listen = "0.0.0.0:8080"
shutdown_timeout = "30s"

[upstream]
base_url = "http://localhost:11434/v1"
default_model = "llama3"

[models]
claude-sonnet-4 = "qwen3-coder"
claude-haiku = "llama3"

[auth]
storage = "file"
file = "/tmp/bridge-key"

[log]
level = "debug"
`)

	cfg, err := loadConfig(path, nil, environ(
		"CLAUDINE_BRIDGE_SERVER__LISTEN=127.0.0.1:9000",
		"CLAUDINE_BRIDGE_LOG__FORMAT=json",
		"CLAUDINE_BRIDGE_SERVER__MAX_REQUEST_BYTES=1024",
		"UNRELATED=1",
	))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen, "env overrides file")
	assert.Equal(t, int64(1024), cfg.Server.MaxRequestBytes)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "llama3", cfg.Upstream.DefaultModel)
	assert.Equal(t, map[string]string{"claude-sonnet-4": "qwen3-coder", "claude-haiku": "llama3"}, cfg.Models)
	assert.Equal(t, app.TokenStorageTypeFile, cfg.Auth.Storage)
	assert.Equal(t, "/tmp/bridge-key", cfg.Auth.File)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	var got app.Config
	cmd := &cli.Command{
		Name: "test",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info"},
			&cli.StringFlag{Name: "listen"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var err error
			got, err = loadConfig(writeConfig(t, ""), cmd, environ(
				"CLAUDINE_BRIDGE_LOG__LEVEL=warn",
				"CLAUDINE_BRIDGE_SERVER__LISTEN=127.0.0.1:9000",
			))
			return err
		},
	}

	require.NoError(t, cmd.Run(t.Context(), []string{"test", "--listen", "127.0.0.1:7000"}))
	assert.Equal(t, "127.0.0.1:7000", got.Server.Listen, "explicit flag wins")
	assert.Equal(t, "warn", got.Log.Level, "flag default does not override env")
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), nil, environ())
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, "[server\n"), nil, environ())
	assert.Error(t, err)

	_, err = loadConfig(writeConfig(t, ""), nil, environ("CLAUDINE_BRIDGE_AUTH__STORAGE=vault"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	key, value := envKey("CLAUDINE_BRIDGE_UPSTREAM__BASE_URL", "http://x")
	assert.Equal(t, "upstream.base_url", key)
	assert.Equal(t, "http://x", value)

	key, _ = envKey("CLAUDINE_BRIDGE_", "x")
	assert.Empty(t, key)
}
