// SPDX-License-Identifier: MPL-2.0

// Package config loads toolkit configuration from a TOML file, environment
// variables and defaults, in that order of increasing precedence for env
// vars over file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for config and cache paths.
	AppName = "vfxb"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix is the environment variable prefix (VFXB_PLATFORM etc).
	EnvPrefix = "VFXB"
)

// LoadOptions controls config resolution.
type LoadOptions struct {
	// ConfigFilePath, when set, is used exclusively instead of the
	// default search path. Loading fails if the file does not exist.
	ConfigFilePath string
}

// DefaultConfig returns the built-in defaults. Directories follow the XDG
// base directory spec; the recipes dir defaults to ./recipes for
// checkout-local use.
func DefaultConfig() *Config {
	return &Config{
		RecipesDir: "recipes",
		OutputDir:  filepath.Join(xdg.DataHome, AppName, "builds"),
		CacheDir:   filepath.Join(xdg.CacheHome, AppName, "cache"),
		Platform:   "vfx2024",
		Channels:   []string{"conda-forge"},
		Container: ContainerConfig{
			Engine: ContainerEngineAuto,
			Image:  "ubuntu22",
		},
	}
}

// DefaultConfigFilePath returns the path where the config file is expected.
func DefaultConfigFilePath() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName+"."+ConfigFileExt)
}

// Load resolves the configuration. A missing config file is not an error
// unless an explicit path was requested; env vars and defaults still apply.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("recipes_dir", defaults.RecipesDir)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("log_dir", defaults.LogDir)
	v.SetDefault("platform", defaults.Platform)
	v.SetDefault("channels", defaults.Channels)
	v.SetDefault("container.engine", string(defaults.Container.Engine))
	v.SetDefault("container.image", defaults.Container.Image)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFilePath != "" {
		v.SetConfigFile(opts.ConfigFilePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", opts.ConfigFilePath, err)
		}
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, AppName))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Render serializes the effective configuration as TOML, the same format
// the config file itself uses.
func (c *Config) Render() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("render config: %w", err)
	}
	return string(data), nil
}

// WriteDefault writes the built-in defaults to path, creating parent
// directories. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	rendered, err := DefaultConfig().Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
