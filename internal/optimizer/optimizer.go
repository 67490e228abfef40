package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"manimgen/internal/logging"
	"manimgen/internal/metrics"
	"manimgen/internal/prompts"
	"manimgen/internal/services"
	"manimgen/internal/services/llm"
)

// Fallback reasons reported in Result.Reason.
const (
	ReasonDisabled      = "disabled"
	ReasonNoProvider    = "provider_unconfigured"
	ReasonProviderError = "provider_error"
	ReasonParsePayload  = "parse_payload"
	ReasonMissingFields = "missing_fields"
)

// Result is the enrichment outcome. It always carries a usable prompt and
// resource plan; Fallback marks that at least one of them is the default.
type Result struct {
	Prompt       string
	ResourcePlan string
	Fallback     bool
	Reason       string
	Err          error
}

// Optimizer asks the provider for an improved prompt and a resource plan.
type Optimizer struct {
	provider llm.Provider
	pack     *prompts.Pack
	enabled  bool
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option customizes an Optimizer.
type Option func(*Optimizer)

// WithEnabled toggles the provider call. A disabled optimizer returns the defaults.
func WithEnabled(enabled bool) Option {
	return func(o *Optimizer) {
		o.enabled = enabled
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Optimizer) {
		o.logger = logger
	}
}

// WithMetrics attaches collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Optimizer) {
		o.metrics = m
	}
}

// New constructs an Optimizer. A nil pack uses the embedded prompts.
func New(provider llm.Provider, pack *prompts.Pack, opts ...Option) *Optimizer {
	if pack == nil {
		pack = prompts.Default()
	}
	o := &Optimizer{provider: provider, pack: pack, enabled: true}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "optimizer")
	return o
}

type payload struct {
	ImprovedPrompt flexText `json:"improved_prompt"`
	ResourcePlan   flexText `json:"resource_plan"`
}

// Optimize never fails: every error path resolves to the description and the
// default resource plan.
func (o *Optimizer) Optimize(ctx context.Context, description string, spec prompts.VideoSpec) Result {
	description = strings.TrimSpace(description)
	logger := logging.WithContext(ctx, o.logger)

	if !o.enabled {
		return o.useFallback(logger, description, ReasonDisabled, nil)
	}
	if o.provider == nil {
		return o.useFallback(logger, description, ReasonNoProvider, nil)
	}

	reply, err := o.provider.Complete(ctx, llm.Request{
		Messages: o.pack.OptimizerMessages(description, spec),
		JSON:     true,
	})
	if err != nil {
		o.metrics.ProviderCall("optimize", "error")
		return o.useFallback(logger, description, ReasonProviderError, services.Wrap(services.ErrProvider, "optimizer", "complete", "", err))
	}
	o.metrics.ProviderCall("optimize", "ok")

	var parsed payload
	if err := llm.DecodeLLMJSON(reply, &parsed); err != nil {
		return o.useFallback(logger, description, ReasonParsePayload, services.Wrap(services.ErrProvider, "optimizer", "decode", "malformed reply", err))
	}

	result := Result{Prompt: string(parsed.ImprovedPrompt), ResourcePlan: string(parsed.ResourcePlan)}
	if result.Prompt == "" {
		result.Prompt = description
		result.Fallback = true
	}
	if result.ResourcePlan == "" {
		result.ResourcePlan = o.pack.DefaultResourcePlan
		result.Fallback = true
	}
	if result.Fallback {
		result.Reason = ReasonMissingFields
		logging.WarnWithContext(logger, "prompt optimization incomplete", "optimizer_fallback",
			logging.String("reason", result.Reason),
			logging.String("reply", llm.SummarizeSnippet(reply)),
			logging.String(logging.FieldImpact, "missing fields replaced with defaults"),
		)
		return result
	}
	logger.Info("prompt optimization completed", logging.Int("prompt_chars", len(result.Prompt)))
	return result
}

func (o *Optimizer) useFallback(logger *slog.Logger, description, reason string, err error) Result {
	if reason != ReasonDisabled {
		attrs := []logging.Attr{
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "generating from the original description"),
		}
		if err != nil {
			attrs = append(attrs, logging.Error(err))
		}
		logging.WarnWithContext(logger, "prompt optimization fell back to defaults", "optimizer_fallback", attrs...)
	}
	return Result{
		Prompt:       description,
		ResourcePlan: o.pack.DefaultResourcePlan,
		Fallback:     true,
		Reason:       reason,
		Err:          err,
	}
}

// flexText accepts a JSON string, an array joined by newlines, or any other
// scalar rendered as text.
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexText(strings.TrimSpace(s))
	case '[':
		var items []any
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		lines := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				lines = append(lines, s)
				continue
			}
			lines = append(lines, fmt.Sprint(item))
		}
		*f = flexText(strings.TrimSpace(strings.Join(lines, "\n")))
	default:
		*f = flexText(string(trimmed))
	}
	return nil
}
