package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type openAIProvider struct {
	client          *openai.Client
	model           string
	reasoningEffort string
}

func newOpenAIProvider(cfg Config, httpClient *http.Client) *openAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	headers := map[string]string{}
	if cfg.Referer != "" {
		headers["HTTP-Referer"] = cfg.Referer
		headers["Referer"] = cfg.Referer
	}
	if cfg.Title != "" {
		headers["X-Title"] = cfg.Title
	}
	if len(headers) > 0 {
		wrapped := *httpClient
		wrapped.Transport = &headerTransport{base: httpClient.Transport, headers: headers}
		httpClient = &wrapped
	}
	clientCfg.HTTPClient = httpClient

	return &openAIProvider{
		client:          openai.NewClientWithConfig(clientCfg),
		model:           cfg.Model,
		reasoningEffort: cfg.ReasoningEffort,
	}
}

func (p *openAIProvider) Model() string {
	return p.model
}

func (p *openAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	const op = "llm complete"
	if err := validateRequest(op, req); err != nil {
		return "", err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openAIRole(msg.Role),
			Content: msg.Content,
		})
	}
	payload := openai.ChatCompletionRequest{
		Model:           p.model,
		Messages:        messages,
		ReasoningEffort: p.reasoningEffort,
	}
	if req.JSON {
		payload.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, payload)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s: http %d: %s: %w", op, apiErr.HTTPStatusCode, strings.TrimSpace(apiErr.Message), err)
		}
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: empty choices", op)
	}
	choice := resp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", &emptyContentError{
			Op:           op,
			FinishReason: string(choice.FinishReason),
			Refusal:      choice.Message.Refusal,
		}
	}
	return content, nil
}

func openAIRole(role Role) string {
	switch role {
	case RoleSystem:
		return openai.ChatMessageRoleSystem
	case RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	for key, value := range t.headers {
		clone.Header.Set(key, value)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
