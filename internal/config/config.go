package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server contains HTTP API settings.
type Server struct {
	Bind                string   `toml:"bind"`
	APIToken            string   `toml:"api_token"`
	CORSOrigins         []string `toml:"cors_origins"`
	StateDir            string   `toml:"state_dir"`
	ReadTimeoutSeconds  int      `toml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `toml:"write_timeout_seconds"`
}

// LLM contains completion provider connection settings.
type LLM struct {
	Provider        string `toml:"provider"`
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	Model           string `toml:"model"`
	Referer         string `toml:"referer"`
	Title           string `toml:"title"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	ReasoningEffort string `toml:"reasoning_effort"`
}

// Render contains settings for the external manim renderer.
type Render struct {
	Binary           string `toml:"binary"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
	Quality          string `toml:"quality"`
	FPS              int    `toml:"fps"`
	DefaultWidth     int    `toml:"default_width"`
	DefaultHeight    int    `toml:"default_height"`
	TexLiveDir       string `toml:"texlive_dir"`
	TempDir          string `toml:"temp_dir"`
	KillGraceSeconds int    `toml:"kill_grace_seconds"`
}

// Generation contains settings for the code generation loop.
type Generation struct {
	MaxAttempts    int    `toml:"max_attempts"`
	PromptsPath    string `toml:"prompts_path"`
	OptimizePrompt bool   `toml:"optimize_prompt"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for manimgen.
//
// Configuration sections by subsystem:
//   - Server: HTTP bind address, bearer token, CORS, lock directory
//   - LLM: completion provider, credentials, model
//   - Render: manim binary, timeout, quality, resolution defaults
//   - Generation: retry budget and prompt pack override
//   - Logging: log format, level, and optional file output
type Config struct {
	Server     Server     `toml:"server"`
	LLM        LLM        `toml:"llm"`
	Render     Render     `toml:"render"`
	Generation Generation `toml:"generation"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/manimgen/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// loaded first so its values can satisfy environment fallbacks.
func Load(path string) (*Config, string, bool, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, "", false, err
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads KEY=value pairs into the process environment without
// overriding variables that are already set.
func loadDotEnv(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if info.IsDir() {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("manimgen.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the daemon writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Server.StateDir}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	if strings.TrimSpace(c.Render.TempDir) != "" {
		dirs = append(dirs, c.Render.TempDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Server.StateDir, "manimgend.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the resolved completion provider settings.
type LLMConfig struct {
	Provider        string
	APIKey          string
	BaseURL         string
	Model           string
	Referer         string
	Title           string
	TimeoutSeconds  int
	ReasoningEffort string
}

// GetLLM returns the completion provider connection settings.
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:        strings.TrimSpace(c.LLM.Provider),
		APIKey:          strings.TrimSpace(c.LLM.APIKey),
		BaseURL:         strings.TrimSpace(c.LLM.BaseURL),
		Model:           strings.TrimSpace(c.LLM.Model),
		Referer:         strings.TrimSpace(c.LLM.Referer),
		Title:           strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds:  c.LLM.TimeoutSeconds,
		ReasoningEffort: strings.TrimSpace(c.LLM.ReasoningEffort),
	}
}
