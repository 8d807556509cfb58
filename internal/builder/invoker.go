// SPDX-License-Identifier: MPL-2.0

package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
)

type (
	// Invocation carries all inputs for one external build: the recipe
	// source, the shared output directory (which doubles as the dependency
	// channel for downstream builds), the channel list, and an optional
	// variant configuration file. Env is an explicit, immutable set of
	// variables layered over the ambient environment; the invoker never
	// mutates process state.
	Invocation struct {
		Recipe            string
		RecipeDir         string
		OutputDir         string
		Channels          []string
		VariantConfigPath string
		Env               map[string]string
		LogPath           string
	}

	// Invoker runs the external package builder for one recipe. It is the
	// single opaque, swappable collaborator the orchestrator blocks on:
	// implementations return the tool's exit status, and an error only when
	// the tool could not be run at all.
	Invoker interface {
		Invoke(ctx context.Context, inv Invocation) (int, error)
	}

	// ExecCommandFunc creates the exec.Cmd for a build invocation. Tests
	// inject fakes through it.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// CondaInvoker invokes conda-build through the conda CLI.
	CondaInvoker struct {
		binary      string
		execCommand ExecCommandFunc
	}

	// CondaInvokerOption configures a CondaInvoker.
	CondaInvokerOption func(*CondaInvoker)
)

// WithCondaBinary overrides the conda binary path.
func WithCondaBinary(path string) CondaInvokerOption {
	return func(i *CondaInvoker) { i.binary = path }
}

// WithExecCommand overrides command construction, for tests.
func WithExecCommand(fn ExecCommandFunc) CondaInvokerOption {
	return func(i *CondaInvoker) { i.execCommand = fn }
}

// NewCondaInvoker creates an Invoker backed by the conda CLI.
func NewCondaInvoker(opts ...CondaInvokerOption) *CondaInvoker {
	inv := &CondaInvoker{
		binary:      "conda",
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Preflight verifies the conda binary can be located before any build is
// attempted, so a missing tool fails the run up front instead of per recipe.
func (i *CondaInvoker) Preflight() error {
	if _, err := exec.LookPath(i.binary); err != nil {
		return fmt.Errorf("locate %s: %w", i.binary, err)
	}
	return nil
}

// Args returns the conda-build argument list for an invocation. The output
// directory is appended as the last channel so builds can consume artifacts
// produced earlier in the same run.
func (i *CondaInvoker) Args(inv Invocation) []string {
	args := []string{"build", inv.RecipeDir}
	for _, channel := range inv.Channels {
		args = append(args, "-c", channel)
	}
	args = append(args, "-c", inv.OutputDir)
	args = append(args, "--override-channels", "--output-folder", inv.OutputDir)
	if inv.VariantConfigPath != "" {
		args = append(args, "--variant-config-files", inv.VariantConfigPath)
	}
	return args
}

// Invoke runs conda-build, streaming combined output to the invocation's log
// file. It returns the subprocess exit status; a non-nil error means the tool
// could not be started or the log could not be written.
func (i *CondaInvoker) Invoke(ctx context.Context, inv Invocation) (int, error) {
	logFile, err := os.Create(inv.LogPath)
	if err != nil {
		return -1, fmt.Errorf("create build log %s: %w", inv.LogPath, err)
	}
	defer logFile.Close()

	cmd := i.execCommand(ctx, i.binary, i.Args(inv)...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Env = mergeEnv(os.Environ(), inv.Env)

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("run %s: %w", i.binary, err)
	}
	return 0, nil
}

// mergeEnv layers overrides onto a base environment in deterministic order.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]string, len(base), len(base)+len(keys))
	copy(env, base)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}
