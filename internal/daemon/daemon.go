package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"streamgrab/internal/api"
	"streamgrab/internal/config"
	"streamgrab/internal/deps"
	"streamgrab/internal/downloader"
	"streamgrab/internal/history"
	"streamgrab/internal/logging"
	"streamgrab/internal/media"
	"streamgrab/internal/notifications"
	"streamgrab/internal/preflight"
	"streamgrab/internal/queue"
	"streamgrab/internal/resolver"
	"streamgrab/internal/services"
	"streamgrab/internal/workflow"
)

const shutdownTimeout = 10 * time.Second

// ErrHistoryDisabled is returned by history helpers when [history] is off.
var ErrHistoryDisabled = errors.New("download history is disabled")

// Daemon owns the download queue and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	queue      *queue.Orchestrator
	resolver   resolver.Resolver
	dispatcher *workflow.Dispatcher
	history    *history.Store
	api        *apiServer

	lockPath string
	lock     *flock.Flock

	lifecycle sync.Mutex
	running   atomic.Bool
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Queue         queue.Stats
	Dispatcher    workflow.StatusSummary
	Dependencies  []deps.Status
	DownloadDir   string
	LockFilePath  string
	SocketPath    string
	HistoryDBPath string
	APIAddress    string
}

// New constructs a daemon with initialized dependencies. The history database
// is opened here so a schema problem surfaces before the lock is taken.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dl := downloader.NewFromConfig(cfg, logger)
	orchestrator := queue.New(dl, queue.Options{
		MaxConcurrent: cfg.Download.MaxConcurrent,
		Logger:        logger,
	})

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		queue:      orchestrator,
		resolver:   dl.Resolver(),
		dispatcher: workflow.NewDispatcher(cfg, orchestrator, logger),
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}
	orchestrator.Subscribe(d.dispatcher)

	if cfg.History.Enabled {
		store, err := history.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open history: %w", err)
		}
		d.history = store
		orchestrator.Subscribe(history.NewRecorder(store, orchestrator, logger))
	}
	orchestrator.Subscribe(notifications.NewSink(cfg, notifications.NewService(cfg), orchestrator))

	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock, then launches the dispatcher and API server.
func (d *Daemon) Start(ctx context.Context) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another streamgrab daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.dispatcher.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start dispatcher: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.dispatcher.Stop()
		cancel()
		_ = d.lock.Unlock()
		return err
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("streamgrab daemon started",
		logging.String("lock", d.lockPath),
		logging.Int("max_concurrent", d.queue.MaxConcurrent()),
		logging.Bool("auto_start", d.dispatcher.AutoStart()),
	)
	return nil
}

// Stop halts dispatching, pauses running downloads so they can be resumed,
// and releases the daemon lock.
func (d *Daemon) Stop() {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	if !d.running.Load() {
		return
	}

	d.dispatcher.Stop()
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := d.queue.Shutdown(shutdownCtx); err != nil {
		logging.WarnWithContext(d.logger, "downloads did not stop in time", "daemon_shutdown_timeout",
			logging.Error(err),
			logging.String(logging.FieldImpact, "temporary segment files may remain in the temp directory"),
		)
	}

	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("streamgrab daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.history != nil {
		return d.history.Close()
	}
	return nil
}

// Running reports whether Start has succeeded and Stop has not been called.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Queue exposes the orchestrator for queue operations.
func (d *Daemon) Queue() *queue.Orchestrator {
	return d.queue
}

// Status returns the current daemon status.
func (d *Daemon) Status(context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Queue:        d.queue.Stats(),
		Dispatcher:   d.dispatcher.Status(),
		Dependencies: preflight.CheckSystemDeps(d.cfg),
		DownloadDir:  d.cfg.Paths.DownloadDir,
		LockFilePath: d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
		APIAddress:   d.api.address(),
	}
	if d.history != nil {
		status.HistoryDBPath = d.history.Path()
	}
	return status
}

// Resolve scans a page for downloadable sources.
func (d *Daemon) Resolve(ctx context.Context, pageURL string) (media.VideoInfo, error) {
	return d.resolver.Resolve(ctx, pageURL)
}

// Enqueue adds a download. With req.Resolve the page is scanned first so the
// item carries its title and sources; with req.Start it is dispatched at once.
func (d *Daemon) Enqueue(ctx context.Context, req api.EnqueueRequest) (queue.Item, error) {
	pageURL := strings.TrimSpace(req.URL)
	if pageURL == "" {
		return queue.Item{}, services.Wrap(services.ErrParse, "daemon", "enqueue", "url is required", nil)
	}
	meta := queue.Metadata{
		URL:            pageURL,
		Title:          strings.TrimSpace(req.Title),
		Quality:        strings.TrimSpace(req.Quality),
		OutputDir:      strings.TrimSpace(req.OutputDir),
		OutputFilename: strings.TrimSpace(req.OutputFilename),
	}
	if req.Resolve {
		info, err := d.resolver.Resolve(ctx, pageURL)
		if err != nil {
			return queue.Item{}, err
		}
		if meta.Title == "" {
			meta.Title = info.Title
		}
		meta.Thumbnail = info.Thumbnail
		meta.Sources = info.Sources
	}

	id := d.queue.Enqueue(meta)
	if req.Start {
		if err := d.queue.Start(id); err != nil {
			return queue.Item{}, err
		}
	}
	return d.queue.Get(id)
}

// SetAutoStart toggles automatic dispatch of pending items.
func (d *Daemon) SetAutoStart(enabled bool) {
	d.dispatcher.SetAutoStart(enabled)
}

// ListHistory returns completed downloads, newest first. A limit of zero
// returns every entry.
func (d *Daemon) ListHistory(ctx context.Context, limit int) ([]history.Entry, error) {
	if d.history == nil {
		return nil, ErrHistoryDisabled
	}
	return d.history.List(ctx, limit)
}

// RemoveHistory deletes a single history entry.
func (d *Daemon) RemoveHistory(ctx context.Context, id int64) error {
	if d.history == nil {
		return ErrHistoryDisabled
	}
	return d.history.Delete(ctx, id)
}

// ClearHistory removes every history entry.
func (d *Daemon) ClearHistory(ctx context.Context) (int64, error) {
	if d.history == nil {
		return 0, ErrHistoryDisabled
	}
	return d.history.Clear(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
