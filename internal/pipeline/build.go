package pipeline

import (
	"context"
	"log/slog"

	"manimgen/internal/config"
	"manimgen/internal/generator"
	"manimgen/internal/metrics"
	"manimgen/internal/optimizer"
	"manimgen/internal/prompts"
	"manimgen/internal/render"
	"manimgen/internal/services"
	"manimgen/internal/services/llm"
)

// Dependencies are the optional collaborators Build threads into each stage.
type Dependencies struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Provider llm.Provider
	Executor render.Executor
}

// Build assembles a Service from configuration. A nil deps.Provider is
// constructed from the [llm] section.
func Build(ctx context.Context, cfg *config.Config, deps Dependencies) (*Service, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "config is required", nil)
	}

	pack, err := prompts.Load(cfg.Generation.PromptsPath)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "load prompts", "", err)
	}

	provider := deps.Provider
	if provider == nil {
		llmCfg := cfg.GetLLM()
		provider, err = llm.NewProvider(ctx, llm.Config{
			Provider:        llmCfg.Provider,
			APIKey:          llmCfg.APIKey,
			BaseURL:         llmCfg.BaseURL,
			Model:           llmCfg.Model,
			Referer:         llmCfg.Referer,
			Title:           llmCfg.Title,
			TimeoutSeconds:  llmCfg.TimeoutSeconds,
			ReasoningEffort: llmCfg.ReasoningEffort,
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "llm provider", "", err)
		}
	}

	renderOpts := []render.Option{render.WithLogger(deps.Logger), render.WithMetrics(deps.Metrics)}
	if deps.Executor != nil {
		renderOpts = append(renderOpts, render.WithExecutor(deps.Executor))
	}
	renderer, err := render.New(RenderConfig(cfg), renderOpts...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "renderer", "", err)
	}

	opt := optimizer.New(provider, pack,
		optimizer.WithEnabled(cfg.Generation.OptimizePrompt),
		optimizer.WithLogger(deps.Logger),
		optimizer.WithMetrics(deps.Metrics),
	)
	gen := generator.New(provider, pack,
		generator.WithMaxAttempts(cfg.Generation.MaxAttempts),
		generator.WithLogger(deps.Logger),
		generator.WithMetrics(deps.Metrics),
	)

	return New(opt, gen, renderer,
		WithLogger(deps.Logger),
		WithModel(provider.Model()),
		WithVideoDefaults(cfg.Render.DefaultWidth, cfg.Render.DefaultHeight, cfg.Render.FPS),
	), nil
}

// RenderConfig maps the [render] section onto the orchestrator settings.
func RenderConfig(cfg *config.Config) render.Config {
	return render.Config{
		Binary:           cfg.Render.Binary,
		TimeoutSeconds:   cfg.Render.TimeoutSeconds,
		FPS:              cfg.Render.FPS,
		Quality:          cfg.Render.Quality,
		TexLiveDir:       cfg.Render.TexLiveDir,
		TempDir:          cfg.Render.TempDir,
		KillGraceSeconds: cfg.Render.KillGraceSeconds,
	}
}

