// SPDX-License-Identifier: MPL-2.0

// Package builder drives the end-to-end build of recipes: cache lookup,
// external builder invocation, artifact discovery, and result aggregation.
//
// Execution is strictly sequential. Downstream recipes consume upstream
// artifacts through the shared output directory, which is handed to the
// external builder as an extra channel, so ordering rather than parallelism
// is the correctness requirement.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/vfxbootstrap/vfxb/internal/cache"
	"github.com/vfxbootstrap/vfxb/internal/dag"
	"github.com/vfxbootstrap/vfxb/internal/recipe"
)

// outputSubdirs are the platform-specific subdirectories of the output folder
// that the external builder may place packages in.
var outputSubdirs = []string{"linux-64", "osx-64", "osx-arm64", "noarch"}

// artifactSuffixes are the package file extensions recognized as build outputs.
var artifactSuffixes = []string{".conda", ".tar.bz2"}

type (
	// Options configures an Orchestrator. Recipes, Invoker, and OutputDir are
	// required; a nil Cache disables caching.
	Options struct {
		Recipes *recipe.Set
		Cache   *cache.Store
		Invoker Invoker
		// OutputDir receives built packages and doubles as the implicit
		// dependency channel between sequential builds.
		OutputDir string
		// LogDir receives per-build log files. Defaults to OutputDir/logs.
		LogDir string
		// Platform is the VFX Platform target (e.g. "vfx2024").
		Platform string
		// Channels are the package channels consulted during builds.
		Channels []string
		// VariantConfig is the parsed variant configuration; it participates
		// in cache key computation.
		VariantConfig map[string]any
		// VariantConfigPath, when set, is passed through to the builder.
		VariantConfigPath string
		// Env holds extra environment variables for build subprocesses.
		Env    map[string]string
		Logger *log.Logger
	}

	// Orchestrator builds one or many recipes in dependency order.
	Orchestrator struct {
		recipes *recipe.Set
		graph   *dag.Graph
		cache   *cache.Store
		invoker Invoker
		opts    Options
		logger  *log.Logger

		// keys memoizes per-recipe cache keys within one run; dependency keys
		// are computed bottom-up before a dependent's own key.
		keys map[string]string
	}
)

// New creates an Orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Recipes == nil {
		return nil, fmt.Errorf("builder: recipes are required")
	}
	if opts.Invoker == nil {
		return nil, fmt.Errorf("builder: invoker is required")
	}
	if opts.OutputDir == "" {
		return nil, fmt.Errorf("builder: output dir is required")
	}
	if opts.LogDir == "" {
		opts.LogDir = filepath.Join(opts.OutputDir, "logs")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default().With("component", "builder")
	}
	return &Orchestrator{
		recipes: opts.Recipes,
		graph:   opts.Recipes.Graph(),
		cache:   opts.Cache,
		invoker: opts.Invoker,
		opts:    opts,
		logger:  logger,
		keys:    make(map[string]string),
	}, nil
}

// ResolveOrder returns the build order for targets (all recipes when empty).
func (o *Orchestrator) ResolveOrder(targets []string) ([]string, error) {
	return o.graph.ResolveOrder(targets)
}

// Build attempts a single recipe and always returns a terminal BuildResult;
// faults are captured in the result, never raised to the caller.
func (o *Orchestrator) Build(ctx context.Context, name string) BuildResult {
	r, ok := o.recipes.Get(name)
	if !ok {
		return failure(name, "", fmt.Sprintf("recipe %q not found", name))
	}

	var key string
	if o.cache != nil {
		var err error
		key, err = o.cacheKey(name)
		if err != nil {
			return failure(name, "", fmt.Sprintf("compute cache key: %v", err))
		}
		if paths, hit := o.cache.Get(key); hit {
			o.logger.Info("cached", "recipe", name)
			return BuildResult{Recipe: name, Success: true, Cached: true, Outputs: paths}
		}
	}

	if err := os.MkdirAll(o.opts.LogDir, 0o755); err != nil {
		return failure(name, "", fmt.Sprintf("create log dir: %v", err))
	}
	logPath := filepath.Join(o.opts.LogDir, buildLogName(name))

	o.logger.Info("building", "recipe", name, "log", logPath)
	code, err := o.invoker.Invoke(ctx, Invocation{
		Recipe:            name,
		RecipeDir:         r.Dir,
		OutputDir:         o.opts.OutputDir,
		Channels:          o.opts.Channels,
		VariantConfigPath: o.opts.VariantConfigPath,
		Env:               o.opts.Env,
		LogPath:           logPath,
	})
	if err != nil {
		return failure(name, logPath, err.Error())
	}
	if code != 0 {
		return failure(name, logPath, fmt.Sprintf("build failed with exit code %d", code))
	}

	outputs, err := o.findOutputs(name)
	if err != nil {
		return failure(name, logPath, fmt.Sprintf("discover build outputs: %v", err))
	}

	if o.cache != nil {
		extra := map[string]string{"recipe": name, "platform": o.opts.Platform}
		if err := o.cache.Put(key, outputs, extra); err != nil {
			return failure(name, logPath, fmt.Sprintf("store build in cache: %v", err))
		}
	}

	return BuildResult{Recipe: name, Success: true, Outputs: outputs, LogPath: logPath}
}

// BuildAll resolves the build order once, then builds each recipe strictly
// sequentially. On a failed result with continueOnError=false the sequence
// stops and the remaining recipes are left un-attempted. Per-recipe faults
// are reported through the result list; the returned error is non-nil only
// when order resolution itself fails (e.g. a dependency cycle).
//
// Cancelling ctx stops the sequence before the next recipe starts; the
// in-flight external build is bound to ctx through the invoker.
func (o *Orchestrator) BuildAll(ctx context.Context, targets []string, continueOnError bool) ([]BuildResult, error) {
	order, err := o.graph.ResolveOrder(targets)
	if err != nil {
		return nil, err
	}
	o.logger.Info("resolved build plan", "recipes", len(order))

	var results []BuildResult
	for _, name := range order {
		if ctx.Err() != nil {
			o.logger.Warn("build run cancelled", "remaining", len(order)-len(results))
			break
		}
		result := o.Build(ctx, name)
		results = append(results, result)
		if !result.Success && !continueOnError {
			o.logger.Error("stopping after failure", "recipe", name, "err", result.Err)
			break
		}
	}
	return results, nil
}

// cacheKey computes the cache key for name, computing dependency keys first
// so upstream changes invalidate downstream keys transitively.
func (o *Orchestrator) cacheKey(name string) (string, error) {
	return o.cacheKeyRec(name, nil)
}

// cacheKeyRec walks the dependency declarations depth-first, carrying the
// active traversal path so a cyclic declaration is reported with the full
// cycle rather than a single name.
func (o *Orchestrator) cacheKeyRec(name string, stack []string) (string, error) {
	if key, ok := o.keys[name]; ok {
		return key, nil
	}
	for i, n := range stack {
		if n == name {
			cycle := append(slices.Clone(stack[i:]), name)
			return "", &dag.CycleError{Cycle: cycle}
		}
	}
	r, ok := o.recipes.Get(name)
	if !ok {
		return "", fmt.Errorf("recipe %q not found", name)
	}

	stack = append(stack, name)
	depKeys := make(map[string]string, len(r.Depends))
	for _, dep := range r.Depends {
		key, err := o.cacheKeyRec(dep, stack)
		if err != nil {
			return "", err
		}
		depKeys[dep] = key
	}

	key, err := cache.ComputeKey(r.Dir, o.buildConfig(), depKeys)
	if err != nil {
		return "", err
	}
	o.keys[name] = key
	return key, nil
}

// buildConfig is the canonical configuration fed into cache keys.
func (o *Orchestrator) buildConfig() map[string]any {
	return map[string]any{
		"platform": o.opts.Platform,
		"channels": o.opts.Channels,
		"variant":  o.opts.VariantConfig,
	}
}

// findOutputs collects packages produced for a recipe: recipe-name-prefixed
// files with known package extensions in the platform output subdirectories.
func (o *Orchestrator) findOutputs(name string) ([]string, error) {
	var outputs []string
	for _, subdir := range outputSubdirs {
		dir := filepath.Join(o.opts.OutputDir, subdir)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("scan output dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), name) {
				continue
			}
			for _, suffix := range artifactSuffixes {
				if strings.HasSuffix(entry.Name(), suffix) {
					outputs = append(outputs, filepath.Join(dir, entry.Name()))
					break
				}
			}
		}
	}
	return outputs, nil
}

// buildLogName returns a unique log file name for one build attempt.
func buildLogName(recipe string) string {
	stamp := time.Now().Format("20060102-150405")
	return fmt.Sprintf("%s-%s-%s.log", recipe, stamp, uuid.NewString()[:8])
}
