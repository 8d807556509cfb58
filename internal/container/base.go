// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides the common implementation for CLI-based
	// container engines. Docker and Podman engines embed this struct;
	// engine-specific behavior (Available, Version) stays on the concrete
	// types.
	BaseCLIEngine struct {
		name        string
		binaryPath  string
		execCommand ExecCommandFunc
	}
)

// WithExecCommand overrides command construction, for tests.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.execCommand = fn }
}

// WithBinaryPath overrides the resolved runtime binary path.
func WithBinaryPath(path string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) { e.binaryPath = path }
}

// NewBaseCLIEngine creates a base engine for the named runtime binary.
func NewBaseCLIEngine(name, binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		name:        name,
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BinaryPath returns the resolved runtime binary path ("" if not found).
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// CreateCommand builds an exec.Cmd for the runtime binary.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// RunCommandWithOutput runs a runtime command and returns its combined output.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	out, err := e.CreateCommand(ctx, args...).CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", e.name, strings.Join(args, " "), err)
	}
	return string(out), nil
}

// RunArgs builds the `run` argument list for opts. Containers are always
// removed on exit; builds and shells never outlive their invocation.
func (e *BaseCLIEngine) RunArgs(opts RunOptions) []string {
	args := []string{"run", "--rm"}
	if opts.Interactive {
		args = append(args, "-it")
	}
	for _, volume := range opts.Volumes {
		args = append(args, "-v", volume)
	}
	envKeys := make([]string, 0, len(opts.Env))
	for k := range opts.Env {
		envKeys = append(envKeys, k)
	}
	sort.Strings(envKeys)
	for _, k := range envKeys {
		args = append(args, "-e", k+"="+opts.Env[k])
	}
	if opts.WorkDir != "" {
		args = append(args, "-w", opts.WorkDir)
	}
	if opts.User != "" {
		args = append(args, "--user", opts.User)
	}
	args = append(args, opts.Image)
	args = append(args, opts.Command...)
	return args
}

// run executes `run` with opts and maps the subprocess exit status.
func (e *BaseCLIEngine) run(ctx context.Context, opts RunOptions) (int, error) {
	cmd := e.CreateCommand(ctx, e.RunArgs(opts)...)
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("run container with %s: %w", e.name, err)
	}
	return 0, nil
}

// pull pulls an image, streaming progress to the parent stdio.
func (e *BaseCLIEngine) pull(ctx context.Context, image string) error {
	if _, err := e.RunCommandWithOutput(ctx, "pull", image); err != nil {
		return fmt.Errorf("pull image %s: %w", image, err)
	}
	return nil
}
