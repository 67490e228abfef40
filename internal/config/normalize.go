package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeServer(); err != nil {
		return err
	}
	c.normalizeLLM()
	if err := c.normalizeRender(); err != nil {
		return err
	}
	if err := c.normalizeGeneration(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeServer() error {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	c.Server.APIToken = strings.TrimSpace(c.Server.APIToken)
	if c.Server.APIToken == "" {
		if value, ok := os.LookupEnv("MANIMGEN_API_TOKEN"); ok {
			c.Server.APIToken = strings.TrimSpace(value)
		}
	}
	origins := make([]string, 0, len(c.Server.CORSOrigins))
	seen := make(map[string]struct{}, len(c.Server.CORSOrigins))
	for _, origin := range c.Server.CORSOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	c.Server.CORSOrigins = origins

	if strings.TrimSpace(c.Server.StateDir) == "" {
		c.Server.StateDir = defaultStateDir
	}
	var err error
	if c.Server.StateDir, err = expandPath(c.Server.StateDir); err != nil {
		return fmt.Errorf("server.state_dir: %w", err)
	}
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = defaultReadTimeoutSeconds
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = defaultWriteTimeoutSeconds
	}
	return nil
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("MANIMGEN_LLM_API_KEY"); ok && strings.TrimSpace(value) != "" {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if c.LLM.Provider == ProviderGemini {
			if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
				c.LLM.APIKey = strings.TrimSpace(value)
			}
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		if value, ok := os.LookupEnv("OPENAI_MODEL"); ok && c.LLM.Provider == ProviderOpenAI {
			c.LLM.Model = strings.TrimSpace(value)
		}
	}
	if c.LLM.Model == "" {
		if c.LLM.Provider == ProviderGemini {
			c.LLM.Model = defaultGeminiModel
		} else {
			c.LLM.Model = defaultOpenAIModel
		}
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	c.LLM.ReasoningEffort = strings.ToLower(strings.TrimSpace(c.LLM.ReasoningEffort))
}

func (c *Config) normalizeRender() error {
	c.Render.Binary = strings.TrimSpace(c.Render.Binary)
	if c.Render.Binary == "" {
		c.Render.Binary = defaultRenderBinary
	}
	c.Render.Quality = strings.ToLower(strings.TrimSpace(c.Render.Quality))
	if c.Render.Quality == "" {
		c.Render.Quality = defaultRenderQuality
	}
	if c.Render.FPS <= 0 {
		c.Render.FPS = defaultRenderFPS
	}
	if c.Render.DefaultWidth <= 0 {
		c.Render.DefaultWidth = defaultRenderWidth
	}
	if c.Render.DefaultHeight <= 0 {
		c.Render.DefaultHeight = defaultRenderHeight
	}
	if c.Render.KillGraceSeconds <= 0 {
		c.Render.KillGraceSeconds = defaultKillGraceSeconds
	}
	var err error
	if c.Render.TexLiveDir, err = expandPath(strings.TrimSpace(c.Render.TexLiveDir)); err != nil {
		return fmt.Errorf("render.texlive_dir: %w", err)
	}
	if c.Render.TempDir, err = expandPath(strings.TrimSpace(c.Render.TempDir)); err != nil {
		return fmt.Errorf("render.temp_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeGeneration() error {
	if c.Generation.MaxAttempts == 0 {
		c.Generation.MaxAttempts = defaultMaxAttempts
	}
	c.Generation.PromptsPath = strings.TrimSpace(c.Generation.PromptsPath)
	var err error
	if c.Generation.PromptsPath, err = expandPath(c.Generation.PromptsPath); err != nil {
		return fmt.Errorf("generation.prompts_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}
