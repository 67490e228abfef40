// Package llm provides the completion provider clients used for prompt
// enrichment and scene code generation.
//
// Two backends sit behind the Provider interface: an OpenAI-compatible chat
// client (any base URL speaking /chat/completions) and a Gemini client. Each
// Complete call maps to exactly one network request. Retries belong to the
// caller, which counts every call against its attempt budget.
//
// # Entry Points
//
// NewProvider: construct a backend from Config.
// Provider.Complete: send a conversation, receive the reply text.
// HealthCheck: verify the API key and model answer a JSON ping.
// DecodeLLMJSON: tolerant decoding of JSON replies wrapped in prose or fences.
package llm
