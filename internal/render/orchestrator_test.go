package render_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"manimgen/internal/metrics"
	"manimgen/internal/render"
	"manimgen/internal/services"
	"manimgen/internal/testsupport"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const sceneCode = `from manim import *

class BlueCircle(Scene):
    def construct(self):
        self.play(Create(Circle(color=BLUE)))
`

// successScript records its argv, environment PATH and the scene file it was
// handed, then drops an artifact where manim would.
const successScript = `
log="$LOG_DIR"
echo "$@" > "$log/args"
echo "$PATH" > "$log/path"
cp scene.py "$log/scene.py"
media=""
scene=""
while [ $# -gt 0 ]; do
  case "$1" in
    --media_dir) media="$2"; shift ;;
    *) scene="$1" ;;
  esac
  shift
done
mkdir -p "$media/videos/scene/480p15/partial_movie_files/$scene"
printf 'partial' > "$media/videos/scene/480p15/partial_movie_files/$scene/00000.mp4"
printf 'mp4-bytes' > "$media/videos/scene/480p15/$scene.mp4"
echo "rendered $scene"
`

func newOrchestrator(t *testing.T, script string, mutate func(*render.Config)) (*render.Orchestrator, render.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := render.Config{
		Binary:           testsupport.WriteScript(t, filepath.Join(dir, "bin"), "manim", script),
		TimeoutSeconds:   10,
		FPS:              30,
		Quality:          "l",
		TempDir:          filepath.Join(dir, "tmp"),
		KillGraceSeconds: 1,
	}
	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		t.Fatalf("mkdir temp: %v", err)
	}
	if mutate != nil {
		mutate(&cfg)
	}
	orch, err := render.New(cfg, render.WithMetrics(metrics.New()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return orch, cfg
}

func assertWorkspaceRemoved(t *testing.T, cfg render.Config) {
	t.Helper()
	if names := testsupport.ListDir(t, cfg.TempDir); len(names) != 0 {
		t.Fatalf("expected workspace removal, found %v", names)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := render.New(render.Config{Binary: "  "}); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestRenderSuccess(t *testing.T) {
	logDir := t.TempDir()
	t.Setenv("LOG_DIR", logDir)
	orch, cfg := newOrchestrator(t, successScript, nil)

	result := orch.Render(context.Background(), render.Request{
		Code:      sceneCode,
		SceneName: "BlueCircle",
		Width:     1280,
		Height:    720,
	})
	if !result.Success {
		t.Fatalf("expected success, got error %q (stderr %q)", result.Error, result.Stderr)
	}
	if string(result.Video) != "mp4-bytes" {
		t.Fatalf("unexpected artifact bytes: %q", result.Video)
	}
	if !strings.Contains(result.Stdout, "rendered BlueCircle") {
		t.Fatalf("expected stdout capture, got %q", result.Stdout)
	}
	if result.Error != "" || result.Err != nil {
		t.Fatalf("unexpected error on success: %q %v", result.Error, result.Err)
	}

	args, err := os.ReadFile(filepath.Join(logDir, "args"))
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	fields := strings.Fields(string(args))
	if len(fields) != 12 {
		t.Fatalf("unexpected argv %q", fields)
	}
	want := []string{"render", "-r", "1280,720", "--fps", "30", "-q", "l", "--media_dir"}
	for i, w := range want {
		if fields[i] != w {
			t.Fatalf("argv[%d] = %q, want %q (argv %q)", i, fields[i], w, fields)
		}
	}
	if filepath.Base(fields[8]) != "media" || fields[9] != "--disable_caching" {
		t.Fatalf("unexpected media/caching args %q", fields[8:10])
	}
	if filepath.Base(fields[10]) != "scene.py" || fields[11] != "BlueCircle" {
		t.Fatalf("unexpected scene args %q", fields[10:])
	}
	if !strings.HasPrefix(filepath.Base(filepath.Dir(fields[10])), "manim_") {
		t.Fatalf("expected manim_ workspace, got %q", fields[10])
	}

	scene, err := os.ReadFile(filepath.Join(logDir, "scene.py"))
	if err != nil {
		t.Fatalf("read scene: %v", err)
	}
	if string(scene) != render.Preamble+"\n\n"+sceneCode {
		t.Fatalf("unexpected scene file:\n%s", scene)
	}
	assertWorkspaceRemoved(t, cfg)
}

func TestRenderRequestQualityOverridesConfig(t *testing.T) {
	logDir := t.TempDir()
	t.Setenv("LOG_DIR", logDir)
	orch, _ := newOrchestrator(t, successScript, nil)

	result := orch.Render(context.Background(), render.Request{
		Code:      sceneCode,
		SceneName: "BlueCircle",
		Width:     640,
		Height:    360,
		Quality:   "h",
	})
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	args, err := os.ReadFile(filepath.Join(logDir, "args"))
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	if !strings.Contains(string(args), "-q h") {
		t.Fatalf("expected request quality in argv, got %q", args)
	}
}

func TestRenderPrependsTexLiveBin(t *testing.T) {
	logDir := t.TempDir()
	t.Setenv("LOG_DIR", logDir)
	texRoot := t.TempDir()
	bin := filepath.Join(texRoot, "2024", "bin", "x86_64-linux")
	if err := os.MkdirAll(bin, 0o755); err != nil {
		t.Fatalf("mkdir texlive: %v", err)
	}
	orch, _ := newOrchestrator(t, successScript, func(c *render.Config) { c.TexLiveDir = texRoot })

	if result := orch.Render(context.Background(), render.Request{Code: sceneCode, SceneName: "BlueCircle", Width: 640, Height: 360}); !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}
	path, err := os.ReadFile(filepath.Join(logDir, "path"))
	if err != nil {
		t.Fatalf("read path: %v", err)
	}
	if !strings.HasPrefix(string(path), bin+string(os.PathListSeparator)) {
		t.Fatalf("expected PATH to start with %q, got %q", bin, path)
	}
}

func TestRenderTimeout(t *testing.T) {
	orch, cfg := newOrchestrator(t, "echo started\nsleep 30\n", nil)

	started := time.Now()
	result := orch.Render(context.Background(), render.Request{
		Code:      sceneCode,
		SceneName: "BlueCircle",
		Width:     640,
		Height:    360,
		Timeout:   time.Second,
	})
	elapsed := time.Since(started)

	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if result.Error != "Render timeout after 1 seconds" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
	if !errors.Is(result.Err, services.ErrRenderTimeout) {
		t.Fatalf("expected ErrRenderTimeout, got %v", result.Err)
	}
	if !strings.Contains(result.Stdout, "started") {
		t.Fatalf("expected partial stdout, got %q", result.Stdout)
	}
	limit := time.Second + time.Duration(cfg.KillGraceSeconds)*time.Second + time.Second
	if elapsed > limit {
		t.Fatalf("timeout took too long: %s (limit %s)", elapsed, limit)
	}
	assertWorkspaceRemoved(t, cfg)
}

func TestRenderSubSecondTimeoutMessage(t *testing.T) {
	orch, cfg := newOrchestrator(t, "sleep 30
", nil)

	result := orch.Render(context.Background(), render.Request{
		Code:      sceneCode,
		SceneName: "BlueCircle",
		Width:     640,
		Height:    360,
		Timeout:   500 * time.Millisecond,
	})

	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if result.Error != "Render timeout after 0.5 seconds" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
	assertWorkspaceRemoved(t, cfg)
}

func TestRenderIgnoresCallerCancellation(t *testing.T) {
	logDir := t.TempDir()
	t.Setenv("LOG_DIR", logDir)
	orch, _ := newOrchestrator(t, "sleep 1\n"+successScript, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	result := orch.Render(ctx, render.Request{Code: sceneCode, SceneName: "BlueCircle", Width: 640, Height: 360})
	if !result.Success {
		t.Fatalf("expected render to survive caller cancellation, got %q", result.Error)
	}
}

func TestRenderNonZeroExit(t *testing.T) {
	orch, cfg := newOrchestrator(t, "echo 'LaTeX Error: missing package' >&2\nexit 1\n", nil)

	result := orch.Render(context.Background(), render.Request{Code: sceneCode, SceneName: "BlueCircle", Width: 640, Height: 360})
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "Manim render failed" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
	if !strings.Contains(result.Stderr, "LaTeX Error") {
		t.Fatalf("expected stderr capture, got %q", result.Stderr)
	}
	if !errors.Is(result.Err, services.ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure, got %v", result.Err)
	}
	assertWorkspaceRemoved(t, cfg)
}

func TestRenderMissingArtifact(t *testing.T) {
	orch, cfg := newOrchestrator(t, "echo done\nexit 0\n", nil)

	result := orch.Render(context.Background(), render.Request{Code: sceneCode, SceneName: "BlueCircle", Width: 640, Height: 360})
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Error != "Video file not found after render" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
	if result.Stdout != "done\n" {
		t.Fatalf("expected stdout on failure, got %q", result.Stdout)
	}
	assertWorkspaceRemoved(t, cfg)
}

func TestRenderMissingBinary(t *testing.T) {
	orch, cfg := newOrchestrator(t, "exit 0\n", func(c *render.Config) {
		c.Binary = filepath.Join(t.TempDir(), "does-not-exist")
	})

	result := orch.Render(context.Background(), render.Request{Code: sceneCode, SceneName: "BlueCircle", Width: 640, Height: 360})
	if result.Success {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(result.Error, "Subprocess error: ") {
		t.Fatalf("unexpected error: %q", result.Error)
	}
	if services.Classify(result.Err) != "render_failure" {
		t.Fatalf("unexpected classification %q", services.Classify(result.Err))
	}
	assertWorkspaceRemoved(t, cfg)
}

func TestRenderUsesInjectedExecutor(t *testing.T) {
	exec := &recordingExecutor{out: render.Output{Stdout: "fake"}}
	orch, err := render.New(render.Config{Binary: "manim", TempDir: t.TempDir()}, render.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := orch.Render(context.Background(), render.Request{Code: sceneCode, SceneName: "BlueCircle", Width: 320, Height: 240})
	if result.Error != "Video file not found after render" {
		t.Fatalf("unexpected error: %q", result.Error)
	}
	if exec.cmd.Timeout != 120*time.Second {
		t.Fatalf("expected default timeout, got %s", exec.cmd.Timeout)
	}
	if exec.cmd.Args[2] != "320,240" || exec.cmd.Args[4] != "60" {
		t.Fatalf("unexpected args %q", exec.cmd.Args)
	}
}

type recordingExecutor struct {
	cmd render.Command
	out render.Output
	err error
}

func (r *recordingExecutor) Run(_ context.Context, cmd render.Command) (render.Output, error) {
	r.cmd = cmd
	return r.out, r.err
}

func TestVersion(t *testing.T) {
	tests := []struct {
		name   string
		script string
		binary string
		want   string
	}{
		{name: "reports stdout", script: "echo 'Manim Community v0.18.1'\n", want: "Manim Community v0.18.1"},
		{name: "non-zero exit", script: "exit 3\n", want: "unknown"},
		{name: "missing binary", script: "exit 0\n", binary: "/nonexistent/manim", want: "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orch, _ := newOrchestrator(t, tt.script, func(c *render.Config) {
				if tt.binary != "" {
					c.Binary = tt.binary
				}
			})
			if got := orch.Version(context.Background()); got != tt.want {
				t.Fatalf("Version() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTexLiveBinDirPicksGreatest(t *testing.T) {
	root := t.TempDir()
	for _, dir := range []string{"2023/bin/x86_64-linux", "2024/bin/x86_64-linux", "2024/bin/aarch64-linux"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "2025"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got := render.TexLiveBinDir(root)
	want := filepath.Join(root, "2024", "bin", "x86_64-linux")
	if got != want {
		t.Fatalf("TexLiveBinDir() = %q, want %q", got, want)
	}
	if render.TexLiveBinDir("") != "" {
		t.Fatal("expected empty root to yield empty dir")
	}
	if render.TexLiveBinDir(filepath.Join(root, "missing")) != "" {
		t.Fatal("expected missing root to yield empty dir")
	}
}

func writeVideo(t *testing.T, path string, mod time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(filepath.Base(path)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Chtimes(path, mod, mod); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestFindVideoPrefersSceneName(t *testing.T) {
	media := t.TempDir()
	now := time.Now()
	named := filepath.Join(media, "videos", "scene", "1080p60", "BlueCircle.mp4")
	writeVideo(t, named, now.Add(-time.Hour))
	writeVideo(t, filepath.Join(media, "videos", "scene", "1080p60", "Other.mp4"), now)
	writeVideo(t, filepath.Join(media, "videos", "scene", "1080p60", "partial_movie_files", "BlueCircle", "newest.mp4"), now.Add(time.Hour))

	got, err := render.FindVideo(media, "BlueCircle")
	if err != nil {
		t.Fatalf("FindVideo: %v", err)
	}
	if got != named {
		t.Fatalf("FindVideo() = %q, want %q", got, named)
	}
}

func TestFindVideoFallsBackToNewest(t *testing.T) {
	media := t.TempDir()
	now := time.Now()
	writeVideo(t, filepath.Join(media, "out", "old.mp4"), now.Add(-time.Hour))
	newest := filepath.Join(media, "out", "new.MP4")
	writeVideo(t, newest, now)

	got, err := render.FindVideo(media, "BlueCircle")
	if err != nil {
		t.Fatalf("FindVideo: %v", err)
	}
	if got != newest {
		t.Fatalf("FindVideo() = %q, want %q", got, newest)
	}
}

func TestFindVideoEmpty(t *testing.T) {
	got, err := render.FindVideo(filepath.Join(t.TempDir(), "media"), "BlueCircle")
	if err != nil {
		t.Fatalf("FindVideo: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no artifact, got %q", got)
	}
}
