package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manimgen/internal/generator"
	"manimgen/internal/metrics"
	"manimgen/internal/optimizer"
	"manimgen/internal/pipeline"
	"manimgen/internal/prompts"
	"manimgen/internal/render"
	"manimgen/internal/services"
	"manimgen/internal/services/llm"
	"manimgen/internal/testsupport"
)

const blueCircleReply = "```python\nfrom manim import *\n\nclass BlueCircleGrowAndMove(Scene):\n    def construct(self):\n        circle = Circle(color=BLUE, fill_opacity=0.5)\n        self.play(GrowFromCenter(circle))\n        self.play(circle.animate.shift(RIGHT * 3))\n        self.wait()\n```"

// scriptedProvider answers optimizer calls with optimizeReply and generation
// calls with codeReply.
type scriptedProvider struct {
	mu            sync.Mutex
	optimizeReply string
	codeReply     string
	optimizeCalls int
	codeCalls     int
	lastCode      llm.Request
}

func (p *scriptedProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if req.JSON {
		p.optimizeCalls++
		return p.optimizeReply, nil
	}
	p.codeCalls++
	p.lastCode = req
	return p.codeReply, nil
}

func (p *scriptedProvider) Model() string { return "gpt-test" }

type stubRenderer struct {
	mu       sync.Mutex
	requests []render.Request
	result   render.Result
	version  string
	panicMsg string
}

func (r *stubRenderer) Render(_ context.Context, req render.Request) render.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	r.requests = append(r.requests, req)
	return r.result
}

func (r *stubRenderer) Version(context.Context) string { return r.version }

func newService(provider llm.Provider, renderer pipeline.Renderer) *pipeline.Service {
	m := metrics.New()
	return pipeline.New(
		optimizer.New(provider, nil, optimizer.WithMetrics(m)),
		generator.New(provider, nil, generator.WithMetrics(m)),
		renderer,
		pipeline.WithModel(provider.Model()),
	)
}

func TestGenerateCodeBlueCircleScenario(t *testing.T) {
	provider := &scriptedProvider{
		optimizeReply: `{"improved_prompt": "A blue circle grows from the center then shifts right", "resource_plan": ["Circle", "GrowFromCenter"]}`,
		codeReply:     blueCircleReply,
	}
	svc := newService(provider, &stubRenderer{})

	resp := svc.GenerateCode(context.Background(), pipeline.Input{
		Description: "Create a blue circle that grows and moves right",
		Width:       1920,
		Height:      1080,
	})

	require.True(t, resp.Valid, resp.Message)
	assert.Equal(t, "BlueCircleGrowAndMove", resp.SceneName)
	assert.Contains(t, resp.Code, "from manim import")
	assert.Contains(t, resp.Code, "def construct(self)")
	assert.Equal(t, 1, provider.optimizeCalls)
	assert.Equal(t, 1, provider.codeCalls)

	user := provider.lastCode.Messages[len(provider.lastCode.Messages)-1].Content
	assert.Contains(t, user, "A blue circle grows from the center then shifts right")
	assert.Contains(t, user, "Circle\nGrowFromCenter")
	assert.Contains(t, user, "1920x1080")
	assert.Contains(t, user, "horizontal (landscape)")
}

func TestGenerateCodeMalformedOptimizerReplyFallsBack(t *testing.T) {
	provider := &scriptedProvider{optimizeReply: "{not json", codeReply: blueCircleReply}
	svc := newService(provider, &stubRenderer{})

	resp := svc.GenerateCode(context.Background(), pipeline.Input{Description: "Create a blue circle that grows and moves right"})

	require.True(t, resp.Valid, resp.Message)
	user := provider.lastCode.Messages[len(provider.lastCode.Messages)-1].Content
	assert.True(t, strings.HasPrefix(user, "Create a blue circle that grows and moves right"))
	assert.Contains(t, user, strings.TrimSpace(prompts.Default().DefaultResourcePlan))
}

func TestGenerateVideoRendersValidCode(t *testing.T) {
	provider := &scriptedProvider{optimizeReply: "{}", codeReply: blueCircleReply}
	renderer := &stubRenderer{result: render.Result{Success: true, Video: []byte("mp4")}}
	svc := newService(provider, renderer)

	out := svc.GenerateVideo(context.Background(), pipeline.Input{
		Description: "Create a blue circle that grows and moves right",
		Width:       1080,
		Height:      1920,
		Quality:     "m",
	})

	require.True(t, out.Success())
	require.Len(t, renderer.requests, 1)
	req := renderer.requests[0]
	assert.Equal(t, "BlueCircleGrowAndMove", req.SceneName)
	assert.Equal(t, 1080, req.Width)
	assert.Equal(t, 1920, req.Height)
	assert.Equal(t, "m", req.Quality)
	assert.Contains(t, req.Code, "Circle(color=BLUE")
	assert.NoError(t, out.Err)
}

func TestGenerateVideoSkipsRenderForInvalidCode(t *testing.T) {
	provider := &scriptedProvider{optimizeReply: "{}", codeReply: "```python\nimport os\nfrom manim import *\n\nclass A(Scene):\n    def construct(self):\n        pass\n```"}
	renderer := &stubRenderer{}
	svc := newService(provider, renderer)

	out := svc.GenerateVideo(context.Background(), pipeline.Input{Description: "list my home directory please"})

	assert.False(t, out.Success())
	assert.False(t, out.Rendered)
	assert.Empty(t, renderer.requests)
	assert.Equal(t, "Forbidden import: os (after 3 attempts)", out.Code.Message)
	assert.True(t, errors.Is(out.Err, services.ErrValidation))
}

func TestGenerateVideoRecoversPanics(t *testing.T) {
	provider := &scriptedProvider{optimizeReply: "{}", codeReply: blueCircleReply}
	svc := newService(provider, &stubRenderer{panicMsg: "boom"})

	out := svc.GenerateVideo(context.Background(), pipeline.Input{Description: "Create a blue circle that grows and moves right"})

	assert.False(t, out.Success())
	assert.Equal(t, "Unexpected error: boom", out.Render.Error)
	assert.True(t, errors.Is(out.Err, services.ErrUnexpected))
	assert.True(t, out.Code.Valid)
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, string, string, prompts.VideoSpec) generator.CodeResponse {
	panic("generator exploded")
}

func TestGenerateCodeRecoversPanics(t *testing.T) {
	svc := pipeline.New(nil, panickingGenerator{}, nil)

	resp := svc.GenerateCode(context.Background(), pipeline.Input{Description: "anything at all"})

	assert.False(t, resp.Valid)
	assert.Equal(t, "Unexpected error: generator exploded", resp.Message)
}

func TestRenderCodeFillsDefaultDimensions(t *testing.T) {
	renderer := &stubRenderer{result: render.Result{Success: true, Video: []byte("x")}}
	svc := pipeline.New(nil, nil, renderer, pipeline.WithVideoDefaults(1280, 720, 30))

	result := svc.RenderCode(context.Background(), render.Request{Code: "code", SceneName: "A"})

	require.True(t, result.Success)
	require.Len(t, renderer.requests, 1)
	assert.Equal(t, 1280, renderer.requests[0].Width)
	assert.Equal(t, 720, renderer.requests[0].Height)
}

func TestHealthReportsVersionAndModel(t *testing.T) {
	provider := &scriptedProvider{}
	svc := newService(provider, &stubRenderer{version: "Manim Community v0.18.1"})

	h := svc.Health(context.Background())
	assert.Equal(t, "Manim Community v0.18.1", h.RendererVersion)
	assert.Equal(t, "gpt-test", h.Model)

	assert.Equal(t, "error", pipeline.New(nil, nil, nil).Health(context.Background()).RendererVersion)
}

type versionExecutor struct{}

func (versionExecutor) Run(_ context.Context, cmd render.Command) (render.Output, error) {
	if len(cmd.Args) == 1 && cmd.Args[0] == "--version" {
		return render.Output{Stdout: "Manim Community v0.19.0\n"}, nil
	}
	return render.Output{}, &render.ExitError{Code: 1}
}

func TestBuildFromConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Generation.MaxAttempts = 2
	cfg.Generation.OptimizePrompt = false
	provider := &scriptedProvider{codeReply: "no code"}

	svc, err := pipeline.Build(context.Background(), cfg, pipeline.Dependencies{
		Provider: provider,
		Executor: versionExecutor{},
		Metrics:  metrics.New(),
	})
	require.NoError(t, err)

	h := svc.Health(context.Background())
	assert.Equal(t, "Manim Community v0.19.0", h.RendererVersion)
	assert.Equal(t, "gpt-test", h.Model)

	resp := svc.GenerateCode(context.Background(), pipeline.Input{Description: "a description long enough"})
	assert.False(t, resp.Valid)
	assert.Equal(t, 0, provider.optimizeCalls)
	assert.Equal(t, 2, provider.codeCalls)
	assert.Equal(t, "Could not extract valid Manim code from response (after 2 attempts)", resp.Message)

	out := svc.GenerateVideo(context.Background(), pipeline.Input{Description: "a description long enough"})
	assert.False(t, out.Rendered)
}

func TestBuildRejectsMissingPromptPack(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Generation.PromptsPath = "/nonexistent/prompts.yaml"

	_, err := pipeline.Build(context.Background(), cfg, pipeline.Dependencies{Provider: &scriptedProvider{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrConfiguration))
}
