// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if cfg.Platform != "vfx2024" {
		t.Errorf("expected vfx2024 default platform, got %q", cfg.Platform)
	}
	if !slices.Equal(cfg.Channels, []string{"conda-forge"}) {
		t.Errorf("expected conda-forge default channel, got %v", cfg.Channels)
	}
	if cfg.Container.Engine != ContainerEngineAuto {
		t.Errorf("expected auto engine, got %q", cfg.Container.Engine)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
platform = "vfx2025"
channels = ["conda-forge", "internal"]
recipes_dir = "/srv/recipes"

[container]
engine = "podman"
image = "rocky9"

[ui]
verbose = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Platform != "vfx2025" {
		t.Errorf("expected vfx2025, got %q", cfg.Platform)
	}
	if !slices.Equal(cfg.Channels, []string{"conda-forge", "internal"}) {
		t.Errorf("unexpected channels: %v", cfg.Channels)
	}
	if cfg.RecipesDir != "/srv/recipes" {
		t.Errorf("unexpected recipes dir: %q", cfg.RecipesDir)
	}
	if cfg.Container.Engine != ContainerEnginePodman || cfg.Container.Image != "rocky9" {
		t.Errorf("unexpected container config: %+v", cfg.Container)
	}
	if !cfg.UI.Verbose {
		t.Error("expected verbose enabled")
	}
	// Unset keys keep defaults.
	if cfg.CacheDir == "" {
		t.Error("expected default cache dir")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Parallel()
	_, err := Load(LoadOptions{ConfigFilePath: filepath.Join(t.TempDir(), "nope.toml")})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VFXB_PLATFORM", "vfx2023")
	cfg, err := Load(LoadOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Platform != "vfx2023" {
		t.Errorf("expected env override, got %q", cfg.Platform)
	}
}

func TestLoad_InvalidEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[container]\nengine = \"lxc\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(LoadOptions{ConfigFilePath: path})
	if !errors.Is(err, ErrInvalidContainerEngine) {
		t.Fatalf("expected ErrInvalidContainerEngine, got %v", err)
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected aggregate ErrInvalidConfig, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.Platform = "   "
	cfg.Channels = []string{"conda-forge", ""}
	err := cfg.Validate()
	if !errors.Is(err, ErrInvalidPlatform) {
		t.Errorf("expected ErrInvalidPlatform, got %v", err)
	}
	if !errors.Is(err, ErrInvalidChannel) {
		t.Errorf("expected ErrInvalidChannel, got %v", err)
	}
	var invalid *InvalidConfigError
	if !errors.As(err, &invalid) || len(invalid.Errs) != 2 {
		t.Errorf("expected two aggregated errors, got %v", err)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()
	rendered, err := DefaultConfig().Render()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(rendered, "platform = 'vfx2024'") && !strings.Contains(rendered, `platform = "vfx2024"`) {
		t.Errorf("expected platform in rendered config, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, "[container]") {
		t.Errorf("expected container table, got:\n%s", rendered)
	}
}

func TestWriteDefault(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file written: %v", err)
	}
	if err := WriteDefault(path); err == nil {
		t.Error("expected refusal to overwrite existing file")
	}
}
