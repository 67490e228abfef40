package preflight

import (
	"context"
	"fmt"

	"manimgen/internal/config"
	"manimgen/internal/render"
)

// CheckRenderer runs `manim --version` through the given orchestrator.
// A nil orchestrator is built from the [render] section of cfg.
func CheckRenderer(ctx context.Context, cfg *config.Config, orchestrator *render.Orchestrator) Result {
	const name = "Manim"

	if orchestrator == nil {
		if cfg == nil {
			return Result{Name: name, Detail: "Unknown"}
		}
		built, err := render.New(render.Config{
			Binary:           cfg.Render.Binary,
			TimeoutSeconds:   cfg.Render.TimeoutSeconds,
			FPS:              cfg.Render.FPS,
			Quality:          cfg.Render.Quality,
			TexLiveDir:       cfg.Render.TexLiveDir,
			TempDir:          cfg.Render.TempDir,
			KillGraceSeconds: cfg.Render.KillGraceSeconds,
		})
		if err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("renderer setup failed (%v)", err)}
		}
		orchestrator = built
	}

	switch version := orchestrator.Version(ctx); version {
	case "error":
		return Result{Name: name, Detail: "binary could not be executed"}
	case "unknown", "":
		return Result{Name: name, Detail: "version check exited with an error"}
	default:
		return Result{Name: name, Passed: true, Detail: version}
	}
}
