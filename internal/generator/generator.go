package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"manimgen/internal/logging"
	"manimgen/internal/metrics"
	"manimgen/internal/prompts"
	"manimgen/internal/sanitize"
	"manimgen/internal/services"
	"manimgen/internal/services/llm"
	"manimgen/internal/validation"
)

// DefaultMaxAttempts bounds provider calls per request.
const DefaultMaxAttempts = 3

const initialFailureMessage = "Code generation failed"

// AttemptRecord captures one generate, extract, sanitize, validate cycle.
type AttemptRecord struct {
	Index     int
	Raw       string
	Code      string
	SceneName string
	Sanitized bool
	Valid     bool
	Message   string
	Err       error
}

// CodeResponse is the outcome of a generation request. Valid implies Code is
// non-empty and declares exactly one allow-listed scene class.
type CodeResponse struct {
	Code      string
	SceneName string
	Valid     bool
	Message   string
	Attempts  int
}

// Generator drives the bounded retry loop.
type Generator struct {
	provider    llm.Provider
	pack        *prompts.Pack
	maxAttempts int
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option customizes a Generator.
type Option func(*Generator)

// WithMaxAttempts overrides the attempt budget. Values below one are ignored.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithMetrics attaches collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) {
		g.metrics = m
	}
}

// New constructs a Generator. A nil pack uses the embedded prompts.
func New(provider llm.Provider, pack *prompts.Pack, opts ...Option) *Generator {
	if pack == nil {
		pack = prompts.Default()
	}
	g := &Generator{
		provider:    provider,
		pack:        pack,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = logging.NewComponentLogger(g.logger, "generator")
	return g
}

// MaxAttempts reports the attempt budget.
func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Generate runs up to MaxAttempts attempts and returns on the first valid one.
// Failures of every kind are folded into the response.
func (g *Generator) Generate(ctx context.Context, prompt, resourcePlan string, spec prompts.VideoSpec) CodeResponse {
	logger := logging.WithContext(ctx, g.logger)

	last := AttemptRecord{Message: initialFailureMessage}
	made := 0
	for n := 1; n <= g.maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			last.Index = n
			last.Message = err.Error()
			last.Err = services.Wrap(services.ErrProvider, "generator", "attempt", "request cancelled", err)
			break
		}
		made = n
		logger.Info("code generation attempt", logging.Int(logging.FieldAttempt, n), logging.Int("max_attempts", g.maxAttempts))

		record := g.attempt(ctx, n, prompt, resourcePlan, spec)
		if record.Valid {
			g.metrics.Attempt("valid")
			g.metrics.Generation(true)
			logger.Info("code generation succeeded",
				logging.Int(logging.FieldAttempt, n),
				logging.String(logging.FieldScene, record.SceneName),
				logging.Bool("sanitized", record.Sanitized),
			)
			return CodeResponse{
				Code:      record.Code,
				SceneName: record.SceneName,
				Valid:     true,
				Message:   record.Message,
				Attempts:  n,
			}
		}

		outcome := services.Classify(record.Err)
		g.metrics.Attempt(outcome)
		logging.WarnWithContext(logger, "code generation attempt failed", "attempt_failed",
			logging.Int(logging.FieldAttempt, n),
			logging.String("reason", outcome),
			logging.String("message", record.Message),
			logging.String(logging.FieldErrorHint, "inspect the provider reply or tighten the description"),
			logging.String(logging.FieldImpact, "retrying with a simplification directive"),
		)
		last = record
	}

	g.metrics.Generation(false)
	logging.ErrorWithContext(logger, "code generation exhausted attempts", "generation_exhausted",
		logging.Int("attempts", made),
		logging.String("message", last.Message),
	)
	return exhausted(last, made)
}

func exhausted(last AttemptRecord, attempts int) CodeResponse {
	message := fmt.Sprintf("%s (after %d attempts)", last.Message, attempts)
	if attempts == 0 {
		message = "request cancelled before the first attempt: " + last.Message
	}
	return CodeResponse{
		Code:      last.Code,
		SceneName: last.SceneName,
		Valid:     false,
		Message:   message,
		Attempts:  attempts,
	}
}

func (g *Generator) attempt(ctx context.Context, n int, prompt, resourcePlan string, spec prompts.VideoSpec) AttemptRecord {
	record := AttemptRecord{Index: n}

	messages := g.pack.GenerationMessages(g.pack.AttemptPrompt(prompt, n), resourcePlan, spec)
	reply, err := g.complete(ctx, messages)
	if err != nil {
		record.Message = err.Error()
		record.Err = services.Wrap(services.ErrProvider, "generator", "complete", "", err)
		return record
	}
	record.Raw = reply

	code, err := Extract(reply)
	if err != nil {
		record.Message = err.Error()
		record.Err = services.Wrap(services.ErrExtraction, "generator", "extract", "", err)
		return record
	}
	record.Code, record.Sanitized = sanitize.Sanitize(code)
	if record.Sanitized {
		logging.WithContext(ctx, g.logger).Info("applied code sanitization", logging.Int(logging.FieldAttempt, n))
	}

	scene, err := validation.SceneClassName(record.Code)
	if err != nil {
		record.Message = err.Error()
		record.Err = services.Wrap(services.ErrValidation, "generator", "scene name", "", err)
		return record
	}
	record.SceneName = scene

	valid, message := validation.Validate(record.Code)
	record.Valid = valid
	record.Message = message
	if !valid {
		record.Err = services.Wrap(services.ErrValidation, "generator", "validate", message, nil)
	}
	return record
}

func (g *Generator) complete(ctx context.Context, messages []llm.Message) (reply string, err error) {
	if g.provider == nil {
		return "", errors.New("completion provider not configured")
	}
	defer func() {
		if err != nil {
			g.metrics.ProviderCall("generate", "error")
			return
		}
		g.metrics.ProviderCall("generate", "ok")
	}()
	return g.provider.Complete(ctx, llm.Request{Messages: messages})
}
