package config

import (
	"errors"
	"fmt"
	"strings"
)

var validQualities = map[string]struct{}{
	"l": {},
	"m": {},
	"h": {},
	"k": {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	return c.validateServer()
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("llm.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/manimgen/config.toml"
		}
		envName := "OPENAI_API_KEY"
		if c.LLM.Provider == ProviderGemini {
			envName = "GEMINI_API_KEY"
		}
		return fmt.Errorf("llm.api_key is required. Set %s env var or edit %s (create with 'manimgen config init')", envName, defaultPath)
	}
	switch c.LLM.ReasoningEffort {
	case "", "minimal", "low", "medium", "high":
	default:
		return fmt.Errorf("llm.reasoning_effort must be one of minimal, low, medium, high; got %q", c.LLM.ReasoningEffort)
	}
	return nil
}

func (c *Config) validateRender() error {
	if err := ensurePositiveMap(map[string]int{
		"render.timeout_seconds":    c.Render.TimeoutSeconds,
		"render.fps":                c.Render.FPS,
		"render.default_width":      c.Render.DefaultWidth,
		"render.default_height":     c.Render.DefaultHeight,
		"render.kill_grace_seconds": c.Render.KillGraceSeconds,
		"llm.timeout_seconds":       c.LLM.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if _, ok := validQualities[c.Render.Quality]; !ok {
		return fmt.Errorf("render.quality must be one of l, m, h, k; got %q", c.Render.Quality)
	}
	if strings.ContainsAny(c.Render.Binary, " \t\n") && !strings.Contains(c.Render.Binary, "/") {
		return errors.New("render.binary must be a single executable name or path")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.MaxAttempts < 1 || c.Generation.MaxAttempts > maxAttemptsCeiling {
		return fmt.Errorf("generation.max_attempts must be between 1 and %d", maxAttemptsCeiling)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.WriteTimeoutSeconds <= c.Render.TimeoutSeconds {
		return errors.New("server.write_timeout_seconds must be greater than render.timeout_seconds")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
