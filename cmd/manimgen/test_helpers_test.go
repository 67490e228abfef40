package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"manimgen/internal/config"
	"manimgen/internal/testsupport"
)

const blueCircleCode = `from manim import *

class BlueCircle(Scene):
    def construct(self):
        circle = Circle(color=BLUE)
        self.play(Create(circle))
`

// renderScript drops an artifact where manim would for the scene named by
// the last argument.
const renderScript = `
media=""
scene=""
while [ $# -gt 0 ]; do
  case "$1" in
    --version) echo "Manim Community v0.18.1"; exit 0 ;;
    --media_dir) media="$2"; shift ;;
    *) scene="$1" ;;
  esac
  shift
done
mkdir -p "$media/videos/scene/480p15"
printf 'mp4-bytes' > "$media/videos/scene/480p15/$scene.mp4"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	llm        *httptest.Server
}

func setupCLITestEnv(t *testing.T, reply string) *cliTestEnv {
	t.Helper()

	for _, key := range []string{"MANIMGEN_LLM_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "OPENAI_MODEL", "MANIMGEN_API_TOKEN"} {
		t.Setenv(key, "")
	}

	srv := httptest.NewServer(chatHandler(t, reply))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithRenderBinary(renderScript))
	base := testsupport.BaseDir(cfg)
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)

	cfg.LLM.BaseURL = srv.URL
	cfg.LLM.Model = "demo-model"
	cfg.Generation.OptimizePrompt = false

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base, llm: srv}
}

// chatHandler answers JSON-mode requests with {"ok":true} and every other
// completion with reply.
func chatHandler(t *testing.T, reply string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ResponseFormat *struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		content := reply
		if body.ResponseFormat != nil && body.ResponseFormat.Type == "json_object" {
			content = `{"ok":true}`
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-1",
			"object":  "chat.completion",
			"model":   "demo-model",
			"choices": []any{map[string]any{"index": 0, "message": map[string]any{"role": "assistant", "content": content}, "finish_reason": "stop"}},
		})
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q to contain %q", haystack, needle)
	}
}

func writeSceneFile(t *testing.T, dir, code string) string {
	t.Helper()
	path := filepath.Join(dir, "scene.py")
	if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	return path
}
