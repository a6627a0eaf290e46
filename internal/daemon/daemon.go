// Package daemon wires the batch processor, converter, and cleanup janitor
// into a long-running single-instance process with an HTTP control endpoint.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"optipress/internal/batch"
	"optipress/internal/cleanup"
	"optipress/internal/config"
	"optipress/internal/convert"
	"optipress/internal/deps"
	"optipress/internal/kvstore"
	"optipress/internal/library"
	"optipress/internal/logging"
	"optipress/internal/trigger"
)

// Daemon coordinates background conversion work and enforces single-instance
// execution through a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *kvstore.Store
	proc    *batch.Processor
	janitor *cleanup.Janitor
	ticker  *trigger.Ticker
	api     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	StateDBPath  string
	LockFilePath string
	Queue        batch.QueueStatus
	Dependencies []deps.Status
}

// New constructs a daemon with its full processing stack.
func New(cfg *config.Config, store *kvstore.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	states := batch.NewStateStore(store)
	ticker := trigger.NewTicker()
	proc := batch.NewProcessor(cfg, states, library.NewScanner(cfg), convert.New(cfg), ticker, logger)

	lockPath := filepath.Join(cfg.Paths.LogDir, "optipressd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		proc:     proc,
		janitor:  cleanup.New(cfg, states, logger),
		ticker:   ticker,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the daemon lock, resumes any interrupted batch, and begins
// serving the control API and the periodic cleanup pass.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another optipress daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if err := d.proc.Resume(d.ctx); err != nil {
		d.logger.Warn("failed to resume interrupted batch",
			logging.Error(err),
			logging.String(logging.FieldEventType, "resume_failed"),
			logging.String(logging.FieldErrorHint, "restart the batch manually"),
		)
	}

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx, d.cancel = nil, nil
			return err
		}
	}

	d.wg.Add(1)
	go d.cleanupLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("optipress daemon started",
		logging.String("lock", d.lockPath),
		logging.String("state_db", d.store.Path()),
	)
	return nil
}

// Stop halts ticking and the API without disturbing persisted batch state,
// so an interrupted batch resumes on the next start.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ticker.Deregister()
	if d.api != nil {
		d.api.stop()
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("optipress daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound API address, or empty when the API is disabled
// or not yet listening. Useful when binding to port 0.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.Addr()
}

// Status reports runtime state for status queries.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StateDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
	if queueStatus, err := d.proc.GetQueueStatus(ctx); err == nil {
		status.Queue = queueStatus
	}
	return status
}

// StartBatch builds and starts a new batch.
func (d *Daemon) StartBatch(ctx context.Context, opts batch.BatchOptions) error {
	return d.proc.StartBatch(ctx, opts)
}

// CancelBatch cancels the running batch if any.
func (d *Daemon) CancelBatch(ctx context.Context) (bool, error) {
	return d.proc.CancelBatch(ctx)
}

// BatchProgress returns the current or last batch's progress record.
func (d *Daemon) BatchProgress(ctx context.Context) (*batch.Progress, error) {
	return d.proc.GetBatchProgress(ctx)
}

// QueueStatus returns snapshot statistics about the queue.
func (d *Daemon) QueueStatus(ctx context.Context) (batch.QueueStatus, error) {
	return d.proc.GetQueueStatus(ctx)
}

// RunCleanup triggers an immediate maintenance pass.
func (d *Daemon) RunCleanup(ctx context.Context) (cleanup.Result, error) {
	return d.janitor.Run(ctx)
}

// cleanupLoop runs the janitor on the temp file age cadence until the
// daemon context is canceled.
func (d *Daemon) cleanupLoop(ctx context.Context) {
	defer d.wg.Done()

	interval := time.Duration(d.cfg.Cleanup.TempFileMaxAge) * time.Second
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.janitor.Run(ctx); err != nil && ctx.Err() == nil {
				d.logger.Warn("cleanup pass failed",
					logging.Error(err),
					logging.String(logging.FieldEventType, "cleanup_failed"),
				)
			}
		}
	}
}
