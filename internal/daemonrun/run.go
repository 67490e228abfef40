package daemonrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"manimgen/internal/config"
	"manimgen/internal/daemon"
	"manimgen/internal/deps"
	"manimgen/internal/logging"
	"manimgen/internal/metrics"
	"manimgen/internal/pipeline"
	"manimgen/internal/preflight"
)

// Options configures daemon process runtime behavior.
type Options struct {
	// LogLevel overrides logging.level when set.
	LogLevel string
	// Bind overrides server.bind when set.
	Bind string
	// SkipPreflight disables the startup directory and provider checks.
	SkipPreflight bool
	// Logger replaces the logger built from config.
	Logger *slog.Logger
	// Pipeline carries injected collaborators into pipeline.Build.
	Pipeline pipeline.Dependencies
	// Ready is invoked with the bound address once the API is serving.
	Ready func(addr string)
}

// Run starts the manimgen daemon and blocks until the context is cancelled
// or the process receives SIGINT/SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return errors.New("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runCfg := *cfg
	if bind := strings.TrimSpace(opts.Bind); bind != "" {
		runCfg.Server.Bind = bind
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		runCfg.Logging.Level = level
	}

	logger := opts.Logger
	if logger == nil {
		built, err := logging.NewFromConfig(&runCfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = built
	}

	if err := runCfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logDependencySnapshot(logger, &runCfg)
	if !opts.SkipPreflight {
		logPreflight(signalCtx, logger, &runCfg)
	}

	pidPath := filepath.Join(runCfg.Server.StateDir, "manimgend.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	m := opts.Pipeline.Metrics
	if m == nil {
		m = metrics.New()
	}
	buildDeps := opts.Pipeline
	buildDeps.Logger = logger
	buildDeps.Metrics = m

	service, err := pipeline.Build(signalCtx, &runCfg, buildDeps)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	d, err := daemon.New(&runCfg, service, logger, m)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check server.bind and the state directory lock"),
			logging.String(logging.FieldImpact, "no requests will be served"),
		)
		return err
	}
	if opts.Ready != nil {
		opts.Ready(d.Addr())
	}

	<-signalCtx.Done()
	logger.Info("manimgen daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("llm_key_present", strings.TrimSpace(cfg.LLM.APIKey) != ""),
		logging.String("llm_provider", cfg.LLM.Provider),
		logging.String("llm_model", cfg.LLM.Model),
	}
	for _, status := range deps.CheckRenderer(cfg) {
		key := strings.ToLower(status.Name)
		attrs = append(attrs,
			logging.Bool(key+"_available", status.Available),
			logging.String(key+"_binary", status.Command),
		)
	}
	logger.Info("dependency snapshot", logging.Args(attrs...)...)
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	for _, result := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run `manimgen status` for details"),
			logging.String(logging.FieldImpact, "requests depending on this check may fail"),
		)
	}
}
