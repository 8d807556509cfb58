// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/vfxbootstrap/vfxb/internal/builder"
)

// fakeEngine records Run/Pull calls without touching a real runtime.
type fakeEngine struct {
	runOpts   []RunOptions
	pulled    []string
	exitCode  int
	available bool
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return f.available }

func (f *fakeEngine) Version(context.Context) (string, error) { return "0.0-test", nil }

func (f *fakeEngine) Pull(_ context.Context, image string) error {
	f.pulled = append(f.pulled, image)
	return nil
}

func (f *fakeEngine) Run(_ context.Context, opts RunOptions) (int, error) {
	f.runOpts = append(f.runOpts, opts)
	return f.exitCode, nil
}

func TestResolveImage(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"default", "", "ubuntu:22.04"},
		{"alias ubuntu", "ubuntu22", "ubuntu:22.04"},
		{"alias rocky8", "rocky8", "rockylinux:8"},
		{"alias rocky9", "rocky9", "rockylinux:9"},
		{"passthrough", "ghcr.io/acme/builder:latest", "ghcr.io/acme/builder:latest"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveImage(tc.in); got != tc.want {
				t.Errorf("ResolveImage(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRunArgs(t *testing.T) {
	t.Parallel()
	base := NewBaseCLIEngine("docker", "/usr/bin/docker")
	args := base.RunArgs(RunOptions{
		Image:   "ubuntu:22.04",
		Command: []string{"conda", "build", "/recipe"},
		WorkDir: "/recipe",
		Env:     map[string]string{"CPU_COUNT": "4", "ARCH": "x86_64"},
		Volumes: []string{"/src:/recipe:ro"},
		User:    "1000:1000",
	})
	want := []string{
		"run", "--rm",
		"-v", "/src:/recipe:ro",
		"-e", "ARCH=x86_64",
		"-e", "CPU_COUNT=4",
		"-w", "/recipe",
		"--user", "1000:1000",
		"ubuntu:22.04",
		"conda", "build", "/recipe",
	}
	if !slices.Equal(args, want) {
		t.Errorf("args mismatch:\n got %v\nwant %v", args, want)
	}
}

func TestRunArgs_Interactive(t *testing.T) {
	t.Parallel()
	base := NewBaseCLIEngine("podman", "/usr/bin/podman")
	args := base.RunArgs(RunOptions{
		Image:       "rockylinux:9",
		Command:     []string{"/bin/bash"},
		Interactive: true,
	})
	want := []string{"run", "--rm", "-it", "rockylinux:9", "/bin/bash"}
	if !slices.Equal(args, want) {
		t.Errorf("args mismatch:\n got %v\nwant %v", args, want)
	}
}

func TestEngine_UnavailableWithoutBinary(t *testing.T) {
	t.Parallel()
	docker := NewDockerEngine(WithBinaryPath(""))
	if docker.Available() {
		t.Error("docker engine with no binary should be unavailable")
	}
	podman := NewPodmanEngine(WithBinaryPath(""))
	if podman.Available() {
		t.Error("podman engine with no binary should be unavailable")
	}
}

func TestEngineStatus(t *testing.T) {
	t.Parallel()

	t.Run("nil engine", func(t *testing.T) {
		t.Parallel()
		status := EngineStatus(context.Background(), nil, "rocky9")
		if status.Runtime != "none" || status.Available {
			t.Errorf("unexpected status: %+v", status)
		}
		if status.DefaultImage != "rockylinux:9" {
			t.Errorf("expected resolved default image, got %q", status.DefaultImage)
		}
	})

	t.Run("available engine", func(t *testing.T) {
		t.Parallel()
		status := EngineStatus(context.Background(), &fakeEngine{available: true}, "")
		if status.Runtime != "fake" || !status.Available || status.Version != "0.0-test" {
			t.Errorf("unexpected status: %+v", status)
		}
	})
}

func TestBuildInvoker_Invoke(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{}
	inv := NewBuildInvoker(engine, "ubuntu22")

	recipeDir := t.TempDir()
	outputDir := filepath.Join(t.TempDir(), "builds")
	logPath := filepath.Join(t.TempDir(), "build.log")
	variantPath := filepath.Join(t.TempDir(), "conda_build_config.yaml")
	if err := os.WriteFile(variantPath, []byte("python:\n  - \"3.11\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	code, err := inv.Invoke(context.Background(), builder.Invocation{
		Recipe:            "openexr",
		RecipeDir:         recipeDir,
		OutputDir:         outputDir,
		Channels:          []string{"conda-forge"},
		VariantConfigPath: variantPath,
		LogPath:           logPath,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if len(engine.runOpts) != 1 {
		t.Fatalf("expected one container run, got %d", len(engine.runOpts))
	}

	opts := engine.runOpts[0]
	if opts.Image != "ubuntu:22.04" {
		t.Errorf("expected resolved image, got %q", opts.Image)
	}
	if len(opts.Volumes) != 3 {
		t.Fatalf("expected recipe, output and variant mounts, got %v", opts.Volumes)
	}
	if opts.Volumes[0] != recipeDir+":/recipe:ro" {
		t.Errorf("unexpected recipe mount: %q", opts.Volumes[0])
	}
	if opts.Volumes[1] != outputDir+":/output:rw" {
		t.Errorf("unexpected output mount: %q", opts.Volumes[1])
	}
	if !strings.Contains(opts.User, ":") {
		t.Errorf("expected uid:gid user, got %q", opts.User)
	}

	want := []string{
		"conda", "build", "/recipe",
		"-c", "conda-forge",
		"-c", "/output",
		"--override-channels",
		"--output-folder", "/output",
		"--variant-config-files", "/variants/conda_build_config.yaml",
	}
	if !slices.Equal(opts.Command, want) {
		t.Errorf("command mismatch:\n got %v\nwant %v", opts.Command, want)
	}

	if _, err := os.Stat(outputDir); err != nil {
		t.Errorf("expected output dir created: %v", err)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("expected log file created: %v", err)
	}
}

func TestShell(t *testing.T) {
	t.Parallel()
	engine := &fakeEngine{}
	code, err := Shell(context.Background(), engine, "rocky8", []string{"/src:/work"}, "/work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	opts := engine.runOpts[0]
	if opts.Image != "rockylinux:8" || !opts.Interactive {
		t.Errorf("unexpected shell options: %+v", opts)
	}
	if !slices.Equal(opts.Command, []string{"/bin/bash"}) {
		t.Errorf("expected bash shell, got %v", opts.Command)
	}
}
