package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/florianilch/claudine-bridge/internal/app"
)

const (
	appName   = "claudine-bridge"
	envPrefix = "CLAUDINE_BRIDGE_"
)

// defaultConfig returns the lowest configuration layer.
func defaultConfig() map[string]any {
	return map[string]any{
		"server.listen":            "127.0.0.1:4000",
		"server.max_request_bytes": 32 << 20,
		"server.shutdown_timeout":  "5s",
		"upstream.base_url":        "https://api.openai.com/v1",
		"upstream.default_model":   "",
		"auth.storage":             string(app.TokenStorageTypeNone),
		"auth.env_var":             "OPENAI_API_KEY",
		"auth.file":                filepath.Join(userConfigDir(), appName, "api-key"),
		"log.level":                "info",
		"log.format":               "text",
		"log.file":                 "",
		"log.exporter":             "",
	}
}

// loadConfig layers defaults, the TOML file, CLAUDINE_BRIDGE_* environment
// variables and explicitly set flags, in increasing precedence. Nested keys in
// environment variables are separated by a double underscore, e.g.
// CLAUDINE_BRIDGE_SERVER__LISTEN.
func loadConfig(path string, cmd *cli.Command, environ func() []string) (app.Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultConfig(), "."), nil); err != nil {
		return app.Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		if candidate := filepath.Join(userConfigDir(), appName, "config.toml"); fileExists(candidate) {
			path = candidate
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return app.Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        envPrefix,
		TransformFunc: envKey,
		EnvironFunc:   environ,
	}), nil); err != nil {
		return app.Config{}, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Load(confmap.Provider(flagOverrides(cmd), "."), nil); err != nil {
		return app.Config{}, fmt.Errorf("load flags: %w", err)
	}

	var cfg app.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return app.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return app.Config{}, err
	}
	return cfg, nil
}

// envKey maps CLAUDINE_BRIDGE_SERVER__LISTEN to server.listen.
func envKey(key, value string) (string, any) {
	key = strings.TrimPrefix(key, envPrefix)
	if key == "" {
		return "", nil
	}
	return strings.ReplaceAll(strings.ToLower(key), "__", "."), value
}

// flagOverrides returns the config keys of flags the user set explicitly.
func flagOverrides(cmd *cli.Command) map[string]any {
	overrides := map[string]any{}
	if cmd == nil {
		return overrides
	}

	flags := map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
		"listen":     "server.listen",
		"upstream":   "upstream.base_url",
	}
	for flag, key := range flags {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}
	return overrides
}

func userConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return dir
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}
