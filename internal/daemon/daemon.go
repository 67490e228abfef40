package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"manimgen/internal/config"
	"manimgen/internal/logging"
	"manimgen/internal/metrics"
	"manimgen/internal/pipeline"
)

// Daemon owns the HTTP server lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	service GenerationService
	metrics *metrics.Metrics

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	server  *apiServer
	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	Address      string
	LockFilePath string
	Health       pipeline.Health
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, svc GenerationService, logger *slog.Logger, m *metrics.Metrics) (*Daemon, error) {
	if cfg == nil || svc == nil {
		return nil, errors.New("daemon requires config and generation service")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		service:  svc,
		metrics:  m,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and begins serving the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another manimgen daemon instance is already running")
	}

	server, err := newAPIServer(d.cfg, d.service, d.logger, d.metrics)
	if err != nil {
		_ = d.lock.Unlock()
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	if err := server.start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.server = server
	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("manimgen daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", server.addr()),
	)
	return nil
}

// Stop shuts the HTTP server down and releases the daemon lock.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next start may report a stale instance"),
		)
	}
	d.running.Store(false)
	d.logger.Info("manimgen daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Addr returns the bound listener address while running.
func (d *Daemon) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server == nil || !d.running.Load() {
		return ""
	}
	return d.server.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Address:      d.Addr(),
		LockFilePath: d.lockPath,
		Health:       d.service.Health(ctx),
	}
}
