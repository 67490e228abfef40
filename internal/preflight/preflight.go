package preflight

import (
	"context"
	"strings"

	"manimgen/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunAll executes the directory and provider checks for the given config.
// Optional directories are only checked when configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("State directory", cfg.Server.StateDir))

	if strings.TrimSpace(cfg.Render.TempDir) != "" {
		results = append(results, CheckDirectoryAccess("Render temp directory", cfg.Render.TempDir))
	}

	if strings.TrimSpace(cfg.Logging.Dir) != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Logging.Dir))
	}

	results = append(results, CheckLLM(ctx, "Completion provider", cfg.GetLLM()))

	return results
}
