// Package daemon runs the controller as a long-lived background service:
// one locked instance per data directory, an HTTP API for UI layers and the
// CLI, and automatic connection to the configured vMix host.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"vmixctl/internal/config"
	"vmixctl/internal/controller"
	"vmixctl/internal/history"
	"vmixctl/internal/logging"
	"vmixctl/internal/metrics"
)

// Daemon coordinates the controller session and enforces single-instance
// execution.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	ctl     *controller.Controller
	store   *history.Store
	metrics *metrics.Metrics

	lockPath string
	lock     *flock.Flock

	api *apiServer

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status is the daemon-level runtime summary.
type Status struct {
	Running    bool              `json:"running"`
	PID        int               `json:"pid"`
	StartedAt  time.Time         `json:"started_at"`
	LockPath   string            `json:"lock_path"`
	DBPath     string            `json:"db_path"`
	APIBind    string            `json:"api_bind"`
	Connection controller.Status `json:"connection"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, ctl *controller.Controller, store *history.Store, m *metrics.Metrics, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || ctl == nil {
		return nil, errors.New("daemon requires config and controller")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Daemon{
		cfg:      cfg,
		logger:   logger.With(logging.String("component", "daemon")),
		ctl:      ctl,
		store:    store,
		metrics:  m,
		lockPath: cfg.LockPath(),
		lock:     flock.New(cfg.LockPath()),
	}
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the instance lock, starts the API server, and connects the
// controller to the configured host. ctx bounds the daemon lifetime.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another vmixctld instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.startedAt = time.Now().UTC()

	if err := d.api.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		return err
	}

	if err := d.ctl.Connect(runCtx, "", 0); err != nil {
		d.api.stop()
		_ = d.lock.Unlock()
		cancel()
		return fmt.Errorf("connect controller: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("host", d.cfg.Connection.Host),
		logging.Int("port", d.cfg.Connection.Port),
		logging.String("api_bind", d.cfg.API.Bind))
	return nil
}

// Stop tears everything down and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Swap(false) {
		return
	}
	d.ctl.Disconnect()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release lock", logging.Error(err))
	}
	d.logger.Info("daemon stopped")
}

// Status reports daemon and session state.
func (d *Daemon) Status() Status {
	status := Status{
		Running:    d.running.Load(),
		PID:        os.Getpid(),
		StartedAt:  d.startedAt,
		LockPath:   d.lockPath,
		APIBind:    d.cfg.API.Bind,
		Connection: d.ctl.Status(),
	}
	if d.store != nil {
		status.DBPath = d.store.Path()
	}
	return status
}
