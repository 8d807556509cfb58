// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vfxbootstrap/vfxb/internal/builder"
)

// Paths inside the build container. The recipe is mounted read-only so a
// misbehaving build script cannot mutate the source tree.
const (
	containerRecipeDir  = "/recipe"
	containerOutputDir  = "/output"
	containerVariantDir = "/variants"
)

// BuildInvoker runs conda builds inside a container, satisfying the
// orchestrator's Invoker seam. Each invocation gets a fresh container; the
// build log is captured to the invocation's log path just like a native run.
type BuildInvoker struct {
	engine Engine
	image  string
	user   string
}

// NewBuildInvoker creates an invoker that builds inside image using engine.
// The image may be an alias (ubuntu22, rocky8, rocky9) or a full reference.
func NewBuildInvoker(engine Engine, image string) *BuildInvoker {
	return &BuildInvoker{
		engine: engine,
		image:  ResolveImage(image),
		user:   fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
	}
}

// Image returns the resolved image reference builds run in.
func (b *BuildInvoker) Image() string {
	return b.image
}

// Invoke runs conda build for inv inside a fresh container and returns the
// container exit code.
func (b *BuildInvoker) Invoke(ctx context.Context, inv builder.Invocation) (int, error) {
	recipeDir, err := filepath.Abs(inv.RecipeDir)
	if err != nil {
		return -1, fmt.Errorf("resolve recipe dir: %w", err)
	}
	outputDir, err := filepath.Abs(inv.OutputDir)
	if err != nil {
		return -1, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return -1, fmt.Errorf("create output dir: %w", err)
	}

	logFile, err := os.Create(inv.LogPath)
	if err != nil {
		return -1, fmt.Errorf("create build log: %w", err)
	}
	defer logFile.Close()

	opts := RunOptions{
		Image: b.image,
		Volumes: []string{
			recipeDir + ":" + containerRecipeDir + ":ro",
			outputDir + ":" + containerOutputDir + ":rw",
		},
		Env:    inv.Env,
		User:   b.user,
		Stdout: logFile,
		Stderr: logFile,
	}

	command := []string{"conda", "build", containerRecipeDir}
	for _, channel := range inv.Channels {
		command = append(command, "-c", channel)
	}
	command = append(command,
		"-c", containerOutputDir,
		"--override-channels",
		"--output-folder", containerOutputDir,
	)
	if inv.VariantConfigPath != "" {
		variantPath, err := filepath.Abs(inv.VariantConfigPath)
		if err != nil {
			return -1, fmt.Errorf("resolve variant config: %w", err)
		}
		mounted := containerVariantDir + "/" + filepath.Base(variantPath)
		opts.Volumes = append(opts.Volumes, variantPath+":"+mounted+":ro")
		command = append(command, "--variant-config-files", mounted)
	}
	opts.Command = command

	return b.engine.Run(ctx, opts)
}

// Shell starts an interactive shell inside a build image, with optional
// extra volume mounts. It blocks until the shell exits.
func Shell(ctx context.Context, engine Engine, image string, volumes []string, workDir string) (int, error) {
	return engine.Run(ctx, RunOptions{
		Image:       ResolveImage(image),
		Command:     []string{"/bin/bash"},
		WorkDir:     workDir,
		Volumes:     volumes,
		Interactive: true,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	})
}
