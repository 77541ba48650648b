package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"reel/internal/config"
	"reel/internal/deps"
	"reel/internal/downloads"
	"reel/internal/logging"
)

// Daemon coordinates the download manager and the HTTP API and enforces
// single-instance execution via a lock file under the state directory.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	manager *downloads.Manager
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	APIAddress   string
	DownloadDir  string
	LockFilePath string
	ActiveJobs   int
	Dependencies []deps.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, manager *downloads.Manager, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || manager == nil || logger == nil {
		return nil, errors.New("daemon requires config, manager, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.StateDir, "reeld.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		manager:  manager,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	d.api = newAPIServer(cfg, manager, logger)
	return d, nil
}

// Start acquires the daemon lock, reports external tool availability, and
// launches the download manager and the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another reel daemon instance is already running")
	}

	statuses := deps.CheckBinaries(deps.Requirements(d.cfg))
	for _, status := range statuses {
		if status.Available {
			d.logger.Info("dependency available",
				logging.String("name", status.Name),
				logging.String("command", status.Command))
			continue
		}
		d.logger.Warn("dependency missing; downloads will fail until it is installed",
			logging.String("name", status.Name),
			logging.String("detail", status.Detail))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.manager.Start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start download manager: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.manager.Stop()
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("reel daemon started",
		logging.String("lock", d.lockPath),
		logging.String("api", d.api.addr()))
	return nil
}

// Stop shuts down the API server and the download manager, then releases
// the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.manager.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("reel daemon stopped")
}

// APIAddress reports the address the HTTP API is listening on. Empty until
// Start succeeds.
func (d *Daemon) APIAddress() string {
	return d.api.addr()
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:      d.running.Load(),
		APIAddress:   d.api.addr(),
		DownloadDir:  d.cfg.Paths.DownloadDir,
		LockFilePath: d.lockPath,
		ActiveJobs:   d.manager.ActiveCount(),
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
}
