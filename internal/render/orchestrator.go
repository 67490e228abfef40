package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"manimgen/internal/logging"
	"manimgen/internal/metrics"
	"manimgen/internal/services"
)

// Preamble is written ahead of generated code in every scene file.
const Preamble = `from manim.mobject.geometry.shape_matchers import BackgroundRectangle

if not hasattr(BackgroundRectangle, "tex_string"):
    BackgroundRectangle.tex_string = ""`

const (
	sceneFileName      = "scene.py"
	mediaDirName       = "media"
	workspacePrefix    = "manim_"
	artifactExt        = ".mp4"
	partialMoviesDir   = "partial_movie_files"
	versionTimeout     = 5 * time.Second
	defaultTimeout     = 120 * time.Second
	defaultFPS         = 60
	msgRenderFailed    = "Manim render failed"
	msgArtifactMissing = "Video file not found after render"
)

// Config holds the renderer settings.
type Config struct {
	Binary           string
	TimeoutSeconds   int
	FPS              int
	Quality          string
	TexLiveDir       string
	TempDir          string
	KillGraceSeconds int
}

// Request is one render job. Zero Timeout uses the configured budget and an
// empty Quality uses the configured tier.
type Request struct {
	Code      string
	SceneName string
	Width     int
	Height    int
	Quality   string
	Timeout   time.Duration
}

// Result is the render outcome. Success implies Video is set; failure implies
// Error is non-empty.
type Result struct {
	Success  bool
	Video    []byte
	Stdout   string
	Stderr   string
	Error    string
	Err      error
	Duration time.Duration
}

// Orchestrator materializes code into a private workspace and runs the renderer.
type Orchestrator struct {
	cfg     Config
	exec    Executor
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the orchestrator.
type Option func(*Orchestrator)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(o *Orchestrator) {
		if exec != nil {
			o.exec = exec
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics attaches collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New constructs an Orchestrator.
func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	cfg.Binary = strings.TrimSpace(cfg.Binary)
	if cfg.Binary == "" {
		return nil, errors.New("render binary required")
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = int(defaultTimeout / time.Second)
	}
	if cfg.FPS <= 0 {
		cfg.FPS = defaultFPS
	}
	cfg.Quality = strings.TrimSpace(cfg.Quality)
	o := &Orchestrator{cfg: cfg, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "render")
	return o, nil
}

// Render writes the scene file, runs the renderer under a hard deadline and
// returns the artifact bytes. The workspace is removed on every path.
func (o *Orchestrator) Render(ctx context.Context, req Request) Result {
	started := time.Now()
	logger := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldScene, req.SceneName))

	result, outcome := o.render(ctx, logger, req)
	result.Duration = time.Since(started)
	o.metrics.Render(outcome, result.Duration)

	if result.Success {
		logger.Info("render complete",
			logging.Duration("elapsed", result.Duration),
			logging.Int("bytes", len(result.Video)),
		)
	} else {
		logging.ErrorWithContext(logger, "render failed", "render_"+outcome,
			logging.String("error", result.Error),
			logging.Duration("elapsed", result.Duration),
			logging.String(logging.FieldErrorHint, "inspect render_logs for the renderer's stderr"),
		)
	}
	return result
}

func (o *Orchestrator) render(ctx context.Context, logger *slog.Logger, req Request) (Result, string) {
	workspace, err := os.MkdirTemp(o.cfg.TempDir, workspacePrefix)
	if err != nil {
		return failure(services.ErrRenderFailure, "workspace", "Subprocess error: "+err.Error(), err, Output{}), "workspace_error"
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logging.WarnWithContext(logger, "workspace cleanup failed", "workspace_cleanup",
				logging.String("workspace", workspace),
				logging.Error(err),
				logging.String(logging.FieldImpact, "temporary files left on disk"),
			)
		}
	}()

	scenePath := filepath.Join(workspace, sceneFileName)
	if err := os.WriteFile(scenePath, []byte(Preamble+"\n\n"+req.Code), 0o644); err != nil {
		return failure(services.ErrRenderFailure, "scene file", "Subprocess error: "+err.Error(), err, Output{}), "workspace_error"
	}

	mediaDir := filepath.Join(workspace, mediaDirName)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = time.Duration(o.cfg.TimeoutSeconds) * time.Second
	}
	cmd := Command{
		Binary:    o.cfg.Binary,
		Args:      o.buildArgs(req, mediaDir, scenePath),
		Dir:       workspace,
		Env:       o.environment(),
		Timeout:   timeout,
		KillGrace: time.Duration(o.cfg.KillGraceSeconds) * time.Second,
	}
	logger.Debug("starting renderer", logging.String("binary", cmd.Binary), logging.String("args", strings.Join(cmd.Args, " ")))

	// The deadline is the only thing allowed to stop a render.
	out, err := o.exec.Run(context.WithoutCancel(ctx), cmd)
	switch {
	case out.TimedOut || errors.Is(err, context.DeadlineExceeded):
		msg := fmt.Sprintf("Render timeout after %s seconds", formatSeconds(timeout))
		return failure(services.ErrRenderTimeout, "wait", msg, err, out), "timeout"
	case err != nil:
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return failure(services.ErrRenderFailure, "exit", msgRenderFailed, err, out), "failure"
		}
		return failure(services.ErrRenderFailure, "exec", "Subprocess error: "+err.Error(), err, out), "failure"
	}

	videoPath, err := FindVideo(mediaDir, req.SceneName)
	if err != nil || videoPath == "" {
		return failure(services.ErrRenderFailure, "artifact", msgArtifactMissing, err, out), "missing_artifact"
	}
	data, err := os.ReadFile(videoPath)
	if err != nil {
		return failure(services.ErrRenderFailure, "artifact", msgArtifactMissing, err, out), "missing_artifact"
	}
	return Result{Success: true, Video: data, Stdout: out.Stdout, Stderr: out.Stderr}, "success"
}

// formatSeconds prints whole budgets as integers and fractional ones with
// the shortest exact decimal.
func formatSeconds(d time.Duration) string {
	if d%time.Second == 0 {
		return strconv.FormatInt(int64(d/time.Second), 10)
	}
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func failure(marker error, operation, message string, cause error, out Output) Result {
	return Result{
		Success: false,
		Stdout:  out.Stdout,
		Stderr:  out.Stderr,
		Error:   message,
		Err:     services.Wrap(marker, "render", operation, message, cause),
	}
}

func (o *Orchestrator) buildArgs(req Request, mediaDir, scenePath string) []string {
	args := []string{
		"render",
		"-r", fmt.Sprintf("%d,%d", req.Width, req.Height),
		"--fps", strconv.Itoa(o.cfg.FPS),
	}
	quality := strings.TrimSpace(req.Quality)
	if quality == "" {
		quality = o.cfg.Quality
	}
	if quality != "" {
		args = append(args, "-q", quality)
	}
	return append(args,
		"--media_dir", mediaDir,
		"--disable_caching",
		scenePath,
		req.SceneName,
	)
}

func (o *Orchestrator) environment() []string {
	env := os.Environ()
	bin := TexLiveBinDir(o.cfg.TexLiveDir)
	if bin == "" {
		return env
	}
	for i, kv := range env {
		if strings.HasPrefix(kv, "PATH=") {
			env[i] = "PATH=" + bin + string(os.PathListSeparator) + strings.TrimPrefix(kv, "PATH=")
			return env
		}
	}
	return append(env, "PATH="+bin)
}

// TexLiveBinDir returns the lexicographically greatest <root>/*/bin/* directory,
// or "" when none exists.
func TexLiveBinDir(root string) string {
	root = strings.TrimSpace(root)
	if root == "" {
		return ""
	}
	matches, err := filepath.Glob(filepath.Join(root, "*", "bin", "*"))
	if err != nil {
		return ""
	}
	dirs := matches[:0]
	for _, match := range matches {
		if info, err := os.Stat(match); err == nil && info.IsDir() {
			dirs = append(dirs, match)
		}
	}
	if len(dirs) == 0 {
		return ""
	}
	sort.Strings(dirs)
	return dirs[len(dirs)-1]
}

type videoEntry struct {
	path    string
	modTime time.Time
}

// FindVideo searches <media>/videos when present, otherwise the whole media
// tree, for .mp4 files outside partial_movie_files. A file whose name contains
// sceneName wins; ties and the fallback go to the newest file.
func FindVideo(mediaDir, sceneName string) (string, error) {
	root := mediaDir
	if info, err := os.Stat(filepath.Join(mediaDir, "videos")); err == nil && info.IsDir() {
		root = filepath.Join(mediaDir, "videos")
	}

	var entries []videoEntry
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			if d.Name() == partialMoviesDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), artifactExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, videoEntry{path: path, modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search media directory: %w", err)
	}
	if len(entries) == 0 {
		return "", nil
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].modTime.After(entries[j].modTime)
	})
	if sceneName != "" {
		for _, entry := range entries {
			stem := strings.TrimSuffix(filepath.Base(entry.path), filepath.Ext(entry.path))
			if strings.Contains(stem, sceneName) {
				return entry.path, nil
			}
		}
	}
	return entries[0].path, nil
}

// Version runs `<binary> --version` with a 5 second budget. It returns the
// trimmed stdout, "unknown" on a non-zero exit, or "error" when the binary
// could not be run.
func (o *Orchestrator) Version(ctx context.Context) string {
	out, err := o.exec.Run(ctx, Command{
		Binary:    o.cfg.Binary,
		Args:      []string{"--version"},
		Timeout:   versionTimeout,
		KillGrace: time.Second,
	})
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return "unknown"
		}
		return "error"
	}
	return strings.TrimSpace(out.Stdout)
}
