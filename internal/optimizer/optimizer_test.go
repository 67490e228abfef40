package optimizer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"manimgen/internal/optimizer"
	"manimgen/internal/prompts"
	"manimgen/internal/services"
	"manimgen/internal/services/llm"
)

type stubProvider struct {
	reply string
	err   error
	reqs  []llm.Request
}

func (s *stubProvider) Complete(_ context.Context, req llm.Request) (string, error) {
	s.reqs = append(s.reqs, req)
	return s.reply, s.err
}

func (s *stubProvider) Model() string { return "stub" }

var spec = prompts.NewVideoSpec(1920, 1080, 60)

func TestOptimizeParsesStructuredReply(t *testing.T) {
	provider := &stubProvider{reply: `{"improved_prompt":"A blue circle grows at the center, then slides right.","resource_plan":["Circle","GrowFromCenter"]}`}
	opt := optimizer.New(provider, nil)

	res := opt.Optimize(context.Background(), "Create a blue circle", spec)

	assert.False(t, res.Fallback)
	assert.Equal(t, "A blue circle grows at the center, then slides right.", res.Prompt)
	assert.Equal(t, "Circle\nGrowFromCenter", res.ResourcePlan)
	require.Len(t, provider.reqs, 1)
	assert.True(t, provider.reqs[0].JSON)
	assert.Contains(t, provider.reqs[0].Messages[1].Content, spec.Notes())
}

func TestOptimizeMalformedJSONFallsBack(t *testing.T) {
	provider := &stubProvider{reply: "{improved_prompt: oops"}
	opt := optimizer.New(provider, nil)

	res := opt.Optimize(context.Background(), "  Create a blue circle  ", spec)

	assert.True(t, res.Fallback)
	assert.Equal(t, optimizer.ReasonParsePayload, res.Reason)
	assert.Equal(t, "Create a blue circle", res.Prompt)
	assert.Equal(t, prompts.Default().DefaultResourcePlan, res.ResourcePlan)
	assert.Error(t, res.Err)
}

func TestOptimizeProviderErrorFallsBack(t *testing.T) {
	provider := &stubProvider{err: errors.New("timeout")}
	opt := optimizer.New(provider, nil)

	res := opt.Optimize(context.Background(), "Create a blue circle", spec)

	assert.True(t, res.Fallback)
	assert.Equal(t, optimizer.ReasonProviderError, res.Reason)
	assert.Equal(t, "Create a blue circle", res.Prompt)
	assert.True(t, errors.Is(res.Err, services.ErrProvider))
}

func TestOptimizeMissingFieldUsesDefaultPerField(t *testing.T) {
	provider := &stubProvider{reply: "```json\n{\"improved_prompt\": \"Detailed brief\"}\n```"}
	opt := optimizer.New(provider, nil)

	res := opt.Optimize(context.Background(), "brief", spec)

	assert.True(t, res.Fallback)
	assert.Equal(t, optimizer.ReasonMissingFields, res.Reason)
	assert.Equal(t, "Detailed brief", res.Prompt)
	assert.Equal(t, prompts.Default().DefaultResourcePlan, res.ResourcePlan)
}

func TestOptimizeDisabledSkipsProvider(t *testing.T) {
	provider := &stubProvider{reply: `{"improved_prompt":"x","resource_plan":"y"}`}
	opt := optimizer.New(provider, nil, optimizer.WithEnabled(false))

	res := opt.Optimize(context.Background(), "brief", spec)

	assert.Empty(t, provider.reqs)
	assert.Equal(t, optimizer.ReasonDisabled, res.Reason)
	assert.Equal(t, "brief", res.Prompt)
}

func TestOptimizeWithoutProvider(t *testing.T) {
	res := optimizer.New(nil, nil).Optimize(context.Background(), "brief", spec)
	assert.Equal(t, optimizer.ReasonNoProvider, res.Reason)
	assert.True(t, res.Fallback)
}

func TestOptimizeScalarFieldsRenderedAsText(t *testing.T) {
	provider := &stubProvider{reply: `{"improved_prompt":"brief","resource_plan":42}`}
	res := optimizer.New(provider, nil).Optimize(context.Background(), "brief", spec)
	assert.False(t, res.Fallback)
	assert.Equal(t, "42", res.ResourcePlan)
}
