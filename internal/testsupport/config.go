package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"manimgen/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.LLM.APIKey = "test"
	cfgVal.Server.Bind = "127.0.0.1:0"
	cfgVal.Server.StateDir = filepath.Join(base, "state")
	cfgVal.Render.TempDir = filepath.Join(base, "tmp")
	cfgVal.Render.TexLiveDir = filepath.Join(base, "texlive")
	cfgVal.Logging.Dir = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithAPIToken sets the daemon bearer token on the test config.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.APIToken = token
	}
}

// WithRenderTimeout overrides the render budget in seconds.
func WithRenderTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.TimeoutSeconds = seconds
	}
}

// WithRenderBinary points the renderer at a stub script body written into
// the test directory.
func WithRenderBinary(body string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Render.Binary = WriteScript(b.t, filepath.Join(b.baseDir, "bin"), "manim", body)
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the renderer's external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"manim", "ffmpeg", "latex"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			WriteScript(b.t, binDir, name, "exit 0\n")
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Server.StateDir)
}
