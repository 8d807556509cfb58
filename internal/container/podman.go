// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"os/exec"
	"strings"
)

// PodmanEngine implements Engine using the Podman CLI.
// It embeds BaseCLIEngine for common CLI operations.
type PodmanEngine struct {
	*BaseCLIEngine
}

// NewPodmanEngine creates a new Podman engine.
func NewPodmanEngine(opts ...BaseCLIEngineOption) *PodmanEngine {
	path, _ := exec.LookPath("podman")
	return &PodmanEngine{
		BaseCLIEngine: NewBaseCLIEngine(string(EngineTypePodman), path, opts...),
	}
}

// Name returns the engine name.
func (e *PodmanEngine) Name() string {
	return string(EngineTypePodman)
}

// Available checks if Podman is installed and responsive. Podman is
// daemonless, so a successful version query is sufficient.
func (e *PodmanEngine) Available() bool {
	if e.BinaryPath() == "" {
		return false
	}
	cmd := e.CreateCommand(context.Background(), "version", "--format", "{{.Client.Version}}")
	return cmd.Run() == nil
}

// Version returns the Podman version.
func (e *PodmanEngine) Version(ctx context.Context) (string, error) {
	out, err := e.RunCommandWithOutput(ctx, "version", "--format", "{{.Client.Version}}")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Pull pulls an image.
func (e *PodmanEngine) Pull(ctx context.Context, image string) error {
	return e.pull(ctx, image)
}

// Run runs a command in a container.
func (e *PodmanEngine) Run(ctx context.Context, opts RunOptions) (int, error) {
	return e.run(ctx, opts)
}
