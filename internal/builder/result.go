// SPDX-License-Identifier: MPL-2.0

package builder

type (
	// BuildResult is the immutable outcome of one recipe's build attempt.
	// Cached implies Success.
	BuildResult struct {
		// Recipe is the recipe name that was attempted.
		Recipe string
		// Success reports whether the recipe ended in a succeeded state.
		Success bool
		// Outputs holds the artifact paths produced by (or restored for) the
		// build.
		Outputs []string
		// LogPath points at the captured build log, if one was written.
		LogPath string
		// Cached is true when the result was served from the build cache
		// without invoking the external builder.
		Cached bool
		// Err carries the failure description for unsuccessful results.
		Err string
	}

	// Summary aggregates the results of one BuildAll run.
	Summary struct {
		Total     int
		Succeeded int
		Cached    int
		Failed    []BuildResult
	}
)

// Status returns a short human-readable state: "cached", "built", or "failed".
func (r BuildResult) Status() string {
	switch {
	case r.Cached:
		return "cached"
	case r.Success:
		return "built"
	default:
		return "failed"
	}
}

// Summarize aggregates a result list into counts plus the failed results.
func Summarize(results []BuildResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
			if r.Cached {
				s.Cached++
			}
		} else {
			s.Failed = append(s.Failed, r)
		}
	}
	return s
}

func failure(recipe, logPath, reason string) BuildResult {
	return BuildResult{Recipe: recipe, LogPath: logPath, Err: reason}
}
