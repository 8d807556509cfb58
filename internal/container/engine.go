// SPDX-License-Identifier: MPL-2.0

// Package container provides an abstraction over container runtimes
// (Docker/Podman) for isolated, reproducible package builds. Engines drive
// the runtime CLIs through subprocesses; no daemon API clients are used.
package container

import (
	"context"
	"fmt"
	"io"
)

type (
	// Engine is the interface for container runtime operations the build
	// toolkit needs.
	Engine interface {
		// Name returns the engine name (docker or podman).
		Name() string
		// Available checks if the engine is usable on this system.
		Available() bool
		// Version returns the engine version.
		Version(ctx context.Context) (string, error)
		// Pull pulls an image.
		Pull(ctx context.Context, image string) error
		// Run runs a command in a fresh container and returns its exit code.
		Run(ctx context.Context, opts RunOptions) (int, error)
	}

	// RunOptions configures a container run.
	RunOptions struct {
		// Image is the image to run.
		Image string
		// Command is the command executed inside the container.
		Command []string
		// WorkDir is the working directory inside the container.
		WorkDir string
		// Env contains environment variables.
		Env map[string]string
		// Volumes are mounts in "host:container[:mode]" format.
		Volumes []string
		// User is the uid:gid to run as inside the container.
		User string
		// Interactive attaches stdin and allocates a TTY (-it). Used for
		// shells; TTY handling is delegated entirely to the runtime CLI.
		Interactive bool
		// Stdin, Stdout, Stderr wire the container's standard streams.
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// EngineType identifies a container engine.
	EngineType string

	// Status describes the detected runtime for user-facing reporting.
	Status struct {
		Runtime      string
		Available    bool
		Version      string
		DefaultImage string
	}

	// ErrEngineNotAvailable is returned when no usable container engine is found.
	ErrEngineNotAvailable struct {
		Engine string
		Reason string
	}
)

const (
	// EngineTypeAuto selects podman when present, falling back to docker.
	EngineTypeAuto   EngineType = "auto"
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine %q is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates an engine for the preferred type, falling back to the
// other CLI engine when the preferred one is unavailable.
func NewEngine(preferred EngineType) (Engine, error) {
	switch preferred {
	case EngineTypeAuto, "":
		return autoDetect()
	case EngineTypePodman:
		if e := NewPodmanEngine(); e.Available() {
			return e, nil
		}
		if e := NewDockerEngine(); e.Available() {
			return e, nil
		}
		return nil, &ErrEngineNotAvailable{Engine: "podman", Reason: "podman is not installed or not accessible, and docker fallback is also not available"}
	case EngineTypeDocker:
		if e := NewDockerEngine(); e.Available() {
			return e, nil
		}
		if e := NewPodmanEngine(); e.Available() {
			return e, nil
		}
		return nil, &ErrEngineNotAvailable{Engine: "docker", Reason: "docker is not installed or not accessible, and podman fallback is also not available"}
	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferred)
	}
}

// autoDetect prefers podman (rootless-friendly) over docker.
func autoDetect() (Engine, error) {
	if podman := NewPodmanEngine(); podman.Available() {
		return podman, nil
	}
	if docker := NewDockerEngine(); docker.Available() {
		return docker, nil
	}
	return nil, &ErrEngineNotAvailable{Engine: "auto", Reason: "neither podman nor docker was found"}
}

// EngineStatus collects runtime status for reporting. A nil engine (nothing
// detected) yields an unavailable status.
func EngineStatus(ctx context.Context, engine Engine, defaultImage string) Status {
	status := Status{DefaultImage: ResolveImage(defaultImage)}
	if engine == nil {
		status.Runtime = "none"
		return status
	}
	status.Runtime = engine.Name()
	status.Available = engine.Available()
	if status.Available {
		if version, err := engine.Version(ctx); err == nil {
			status.Version = version
		}
	}
	return status
}
