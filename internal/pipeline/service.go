package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"manimgen/internal/generator"
	"manimgen/internal/logging"
	"manimgen/internal/optimizer"
	"manimgen/internal/prompts"
	"manimgen/internal/render"
	"manimgen/internal/services"
)

// Input is one generation request after transport-level validation. Zero
// dimensions use the configured defaults; an empty Quality uses the
// renderer's configured tier.
type Input struct {
	Description string
	Width       int
	Height      int
	Quality     string
}

// VideoOutcome carries both halves of a video request. Rendered reports
// whether the renderer ran at all.
type VideoOutcome struct {
	Code     generator.CodeResponse
	Render   render.Result
	Rendered bool
	Err      error
}

// Success reports whether the request produced an artifact.
func (o VideoOutcome) Success() bool {
	return o.Rendered && o.Render.Success
}

// Health is the best-effort service status.
type Health struct {
	RendererVersion string
	Model           string
}

// Optimizer enriches a description before generation.
type Optimizer interface {
	Optimize(ctx context.Context, description string, spec prompts.VideoSpec) optimizer.Result
}

// CodeGenerator runs the bounded generation loop.
type CodeGenerator interface {
	Generate(ctx context.Context, prompt, resourcePlan string, spec prompts.VideoSpec) generator.CodeResponse
}

// Renderer turns validated code into an artifact.
type Renderer interface {
	Render(ctx context.Context, req render.Request) render.Result
	Version(ctx context.Context) string
}

// Service wires the three stages together. It holds no per-request state.
type Service struct {
	optimizer     Optimizer
	generator     CodeGenerator
	renderer      Renderer
	model         string
	fps           int
	defaultWidth  int
	defaultHeight int
	logger        *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithModel records the model identifier reported by Health.
func WithModel(model string) Option {
	return func(s *Service) {
		s.model = strings.TrimSpace(model)
	}
}

// WithVideoDefaults sets the frame rate and the dimensions used when a
// request leaves them unset.
func WithVideoDefaults(width, height, fps int) Option {
	return func(s *Service) {
		s.defaultWidth = width
		s.defaultHeight = height
		s.fps = fps
	}
}

// New constructs a Service from its stages.
func New(opt Optimizer, gen CodeGenerator, renderer Renderer, opts ...Option) *Service {
	s := &Service{
		optimizer:     opt,
		generator:     gen,
		renderer:      renderer,
		fps:           prompts.DefaultFPS,
		defaultWidth:  prompts.DefaultWidth,
		defaultHeight: prompts.DefaultHeight,
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "pipeline")
	return s
}

// VideoSpec resolves the directive for a request.
func (s *Service) VideoSpec(in Input) prompts.VideoSpec {
	width, height := in.Width, in.Height
	if width <= 0 {
		width = s.defaultWidth
	}
	if height <= 0 {
		height = s.defaultHeight
	}
	return prompts.NewVideoSpec(width, height, s.fps)
}

// GenerateCode optimizes the description and runs the generation loop.
func (s *Service) GenerateCode(ctx context.Context, in Input) (resp generator.CodeResponse) {
	logger := logging.WithContext(ctx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			msg, _ := s.recovered(logger, "generate code", r)
			resp = generator.CodeResponse{Valid: false, Message: msg}
		}
	}()
	return s.generateCode(ctx, logger, in, s.VideoSpec(in))
}

func (s *Service) generateCode(ctx context.Context, logger *slog.Logger, in Input, spec prompts.VideoSpec) generator.CodeResponse {
	logger.Info("generation requested",
		logging.Int("width", spec.Width),
		logging.Int("height", spec.Height),
		logging.String("orientation", spec.Orientation),
		logging.Int("description_chars", len(in.Description)),
	)

	prompt, plan := in.Description, ""
	if s.optimizer != nil {
		optimized := s.optimizer.Optimize(ctx, in.Description, spec)
		prompt, plan = optimized.Prompt, optimized.ResourcePlan
		if optimized.Fallback {
			logger.Debug("using fallback prompt", logging.String("reason", optimized.Reason))
		}
	}
	if s.generator == nil {
		return generator.CodeResponse{Valid: false, Message: "code generator not configured"}
	}
	return s.generator.Generate(ctx, prompt, plan, spec)
}

// GenerateVideo generates code and, when it validates, renders it.
func (s *Service) GenerateVideo(ctx context.Context, in Input) (out VideoOutcome) {
	logger := logging.WithContext(ctx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			msg, err := s.recovered(logger, "generate video", r)
			code := out.Code
			if !code.Valid {
				code = generator.CodeResponse{Valid: false, Message: msg}
			}
			out = VideoOutcome{
				Code:   code,
				Render: render.Result{Success: false, Error: msg, Err: err},
				Err:    err,
			}
		}
	}()

	spec := s.VideoSpec(in)
	out.Code = s.generateCode(ctx, logger, in, spec)
	if !out.Code.Valid {
		out.Err = services.Wrap(services.ErrValidation, "pipeline", "generate", out.Code.Message, nil)
		return out
	}
	if s.renderer == nil {
		out.Err = services.Wrap(services.ErrConfiguration, "pipeline", "render", "renderer not configured", nil)
		return out
	}

	out.Render = s.renderer.Render(ctx, render.Request{
		Code:      out.Code.Code,
		SceneName: out.Code.SceneName,
		Width:     spec.Width,
		Height:    spec.Height,
		Quality:   in.Quality,
	})
	out.Rendered = true
	out.Err = out.Render.Err
	return out
}

// RenderCode renders caller-supplied code that already passed validation.
func (s *Service) RenderCode(ctx context.Context, req render.Request) (result render.Result) {
	logger := logging.WithContext(ctx, s.logger)
	defer func() {
		if r := recover(); r != nil {
			msg, err := s.recovered(logger, "render code", r)
			result = render.Result{Success: false, Error: msg, Err: err}
		}
	}()
	if s.renderer == nil {
		err := services.Wrap(services.ErrConfiguration, "pipeline", "render", "renderer not configured", nil)
		return render.Result{Success: false, Error: "renderer not configured", Err: err}
	}
	if req.Width <= 0 || req.Height <= 0 {
		spec := s.VideoSpec(Input{Width: req.Width, Height: req.Height})
		req.Width, req.Height = spec.Width, spec.Height
	}
	return s.renderer.Render(ctx, req)
}

// Health probes the renderer version and reports the configured model.
func (s *Service) Health(ctx context.Context) Health {
	h := Health{RendererVersion: "error", Model: s.model}
	if s.renderer != nil {
		h.RendererVersion = s.renderer.Version(ctx)
	}
	return h
}

// recovered logs a panic and converts it into the user-visible message and a
// classified error.
func (s *Service) recovered(logger *slog.Logger, operation string, r any) (string, error) {
	msg := fmt.Sprintf("Unexpected error: %v", r)
	err := services.Wrap(services.ErrUnexpected, "pipeline", operation, msg, nil)
	logging.ErrorWithContext(logger, "request panicked", "pipeline_panic",
		logging.String("operation", operation),
		logging.Any("panic", r),
		logging.String("stack", string(debug.Stack())),
	)
	return msg, err
}
