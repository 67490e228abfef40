package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultHTTPTimeout = 120 * time.Second

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a provider conversation.
type Message struct {
	Role    Role
	Content string
}

// Request is a single completion call. JSON asks the backend to constrain the
// reply to a JSON object.
type Request struct {
	Messages []Message
	JSON     bool
}

// Provider issues exactly one completion call per Complete invocation and
// returns the reply text. Implementations never retry internally.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// Config captures the runtime settings required to talk to a completion provider.
type Config struct {
	Provider        string
	APIKey          string
	BaseURL         string
	Model           string
	Referer         string
	Title           string
	TimeoutSeconds  int
	ReasoningEffort string
}

// DefaultHTTPTimeout returns the default timeout used for provider requests.
func DefaultHTTPTimeout() time.Duration {
	return defaultHTTPTimeout
}

type options struct {
	httpClient *http.Client
}

// Option customizes provider construction.
type Option func(*options)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// NewProvider constructs the backend named by cfg.Provider.
func NewProvider(ctx context.Context, cfg Config, opts ...Option) (Provider, error) {
	cfg = normalizeConfig(cfg)
	if cfg.APIKey == "" {
		return nil, errors.New("llm provider: api key required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm provider: model required")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: timeoutFor(cfg)}
	}

	switch cfg.Provider {
	case "", "openai":
		return newOpenAIProvider(cfg, o.httpClient), nil
	case "gemini":
		return newGeminiProvider(ctx, cfg, o.httpClient)
	default:
		return nil, fmt.Errorf("llm provider: unsupported provider %q", cfg.Provider)
	}
}

func normalizeConfig(cfg Config) Config {
	return Config{
		Provider:        strings.ToLower(strings.TrimSpace(cfg.Provider)),
		APIKey:          strings.TrimSpace(cfg.APIKey),
		BaseURL:         strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		Model:           strings.TrimSpace(cfg.Model),
		Referer:         strings.TrimSpace(cfg.Referer),
		Title:           strings.TrimSpace(cfg.Title),
		TimeoutSeconds:  cfg.TimeoutSeconds,
		ReasoningEffort: strings.ToLower(strings.TrimSpace(cfg.ReasoningEffort)),
	}
}

func timeoutFor(cfg Config) time.Duration {
	if cfg.TimeoutSeconds > 0 {
		return time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return defaultHTTPTimeout
}

func validateRequest(op string, req Request) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%s: at least one message required", op)
	}
	for _, msg := range req.Messages {
		if msg.Role == RoleUser && strings.TrimSpace(msg.Content) != "" {
			return nil
		}
	}
	return fmt.Errorf("%s: user message required", op)
}

type emptyContentError struct {
	Op           string
	FinishReason string
	Refusal      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("%s: empty content (finish_reason=%q, refusal=%q)", e.Op, e.FinishReason, e.Refusal)
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func HealthCheck(ctx context.Context, provider Provider) error {
	if provider == nil {
		return errors.New("llm health: provider not configured")
	}
	content, err := provider.Complete(ctx, Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "You must respond with JSON only."},
			{Role: RoleUser, Content: "Respond with {\"ok\":true}"},
		},
		JSON: true,
	})
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}
