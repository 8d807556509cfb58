// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ContainerEngineAuto selects the first available container runtime.
	ContainerEngineAuto ContainerEngine = "auto"
	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidPlatform is returned when a Platform value is empty or whitespace-only.
	ErrInvalidPlatform = errors.New("invalid platform")
	// ErrInvalidChannel is returned when a channel entry is empty or whitespace-only.
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine specifies which container runtime to use.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is
	// not recognized. It wraps ErrInvalidContainerEngine for errors.Is().
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// ContainerConfig holds container isolation settings.
	ContainerConfig struct {
		// Engine selects the container runtime (auto, podman, docker).
		Engine ContainerEngine `mapstructure:"engine" toml:"engine"`
		// Image is the default build image alias or full reference.
		Image string `mapstructure:"image" toml:"image"`
	}

	// UIConfig holds terminal output settings.
	UIConfig struct {
		// Verbose enables debug-level logging.
		Verbose bool `mapstructure:"verbose" toml:"verbose"`
	}

	// InvalidConfigError aggregates all validation failures in a Config.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		Errs []error
	}

	// Config is the toolkit configuration.
	Config struct {
		// RecipesDir is the directory scanned for recipes.
		RecipesDir string `mapstructure:"recipes_dir" toml:"recipes_dir"`
		// OutputDir receives built packages and the local channel layout.
		OutputDir string `mapstructure:"output_dir" toml:"output_dir"`
		// CacheDir is the root of the content-addressed build cache.
		CacheDir string `mapstructure:"cache_dir" toml:"cache_dir"`
		// LogDir receives per-invocation build logs ("" means OutputDir/logs).
		LogDir string `mapstructure:"log_dir" toml:"log_dir"`
		// Platform is the VFX Platform target, e.g. vfx2024.
		Platform string `mapstructure:"platform" toml:"platform"`
		// Channels are the conda channels consulted during builds, in
		// priority order. The local output channel is always appended.
		Channels []string `mapstructure:"channels" toml:"channels"`
		// Container holds container isolation settings.
		Container ContainerConfig `mapstructure:"container" toml:"container"`
		// UI holds terminal output settings.
		UI UIConfig `mapstructure:"ui" toml:"ui"`
	}
)

func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("%v: %q (expected auto, podman or docker)", ErrInvalidContainerEngine, e.Value)
}

func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// Validate checks that the engine value is one of the known runtimes.
func (c ContainerEngine) Validate() error {
	switch c {
	case ContainerEngineAuto, ContainerEnginePodman, ContainerEngineDocker:
		return nil
	default:
		return &InvalidContainerEngineError{Value: c}
	}
}

func (e *InvalidConfigError) Error() string {
	msgs := make([]string, 0, len(e.Errs))
	for _, err := range e.Errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%v: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// Unwrap exposes both the aggregate sentinel and every individual failure,
// so errors.Is() matches either.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.Errs...)
}

// Validate checks the whole configuration and aggregates every failure.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Platform) == "" {
		errs = append(errs, ErrInvalidPlatform)
	}
	for _, channel := range c.Channels {
		if strings.TrimSpace(channel) == "" {
			errs = append(errs, fmt.Errorf("%w: empty channel entry", ErrInvalidChannel))
		}
	}
	if err := c.Container.Engine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return &InvalidConfigError{Errs: errs}
	}
	return nil
}
