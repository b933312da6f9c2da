package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"streamgrab/internal/config"
	"streamgrab/internal/logging"
	"streamgrab/internal/queue"
)

const defaultPollInterval = 5 * time.Second

// Queue is the part of the orchestrator the dispatcher drives.
type Queue interface {
	PendingItems() []queue.Item
	ActiveCount() int
	MaxConcurrent() int
	Start(id string) error
}

// Dispatcher starts Pending items while slots are free.
type Dispatcher struct {
	queue        Queue
	logger       *slog.Logger
	pollInterval time.Duration
	wake         chan struct{}

	// dispatchMu serialises dispatch passes so two wakeups cannot both see
	// the same free slot.
	dispatchMu sync.Mutex

	mu         sync.RWMutex
	running    bool
	autoStart  bool
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	lastErr    error
	dispatched int
}

var _ queue.EventSink = (*Dispatcher)(nil)

// NewDispatcher constructs a dispatcher for q using the [download] auto_start
// flag and the [workflow] poll interval.
func NewDispatcher(cfg *config.Config, q Queue, logger *slog.Logger) *Dispatcher {
	poll := cfg.QueuePollInterval()
	if poll <= 0 {
		poll = defaultPollInterval
	}
	return &Dispatcher{
		queue:        q,
		logger:       logging.NewComponentLogger(logger, "dispatcher"),
		pollInterval: poll,
		wake:         make(chan struct{}, 1),
		autoStart:    cfg.Download.AutoStart,
	}
}

// Start begins background dispatching.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("dispatcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	d.wg.Add(1)
	d.mu.Unlock()

	go d.run(runCtx)
	d.logger.Info("dispatcher started",
		logging.Bool("auto_start", d.AutoStart()),
		logging.Duration("poll_interval", d.pollInterval),
	)
	return nil
}

// Stop terminates the dispatch loop and waits for it to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
}

// Emit wakes the loop on events that can free a slot or add work. It never
// blocks.
func (d *Dispatcher) Emit(ev queue.Event) error {
	switch ev.Status {
	case queue.StatusPending, queue.StatusCompleted, queue.StatusFailed,
		queue.StatusCancelled, queue.StatusPaused:
		d.Notify()
	}
	return nil
}

// Notify requests a dispatch pass.
func (d *Dispatcher) Notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// AutoStart reports whether pending items are started automatically.
func (d *Dispatcher) AutoStart() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.autoStart
}

// SetAutoStart toggles automatic dispatch.
func (d *Dispatcher) SetAutoStart(enabled bool) {
	d.mu.Lock()
	d.autoStart = enabled
	d.mu.Unlock()
	d.logger.Info("auto start updated", logging.Bool("auto_start", enabled))
	if enabled {
		d.Notify()
	}
}

// DispatchOnce starts as many pending items as the ceiling allows and returns
// how many were started.
func (d *Dispatcher) DispatchOnce() int {
	d.dispatchMu.Lock()
	defer d.dispatchMu.Unlock()

	slots := d.queue.MaxConcurrent() - d.queue.ActiveCount()
	if slots <= 0 {
		return 0
	}
	started := 0
	for _, item := range d.queue.PendingItems() {
		if started >= slots {
			break
		}
		if err := d.queue.Start(item.ID); err != nil {
			if errors.Is(err, queue.ErrInvalidState) || errors.Is(err, queue.ErrNotFound) {
				continue
			}
			d.setLastError(err)
			d.logger.Error("failed to start queued download",
				logging.String(logging.FieldItemID, item.ID),
				logging.Error(err),
				logging.String(logging.FieldEventType, "dispatch_failed"),
				logging.String(logging.FieldErrorHint, "inspect the item and start it manually"),
			)
			continue
		}
		started++
		d.logger.Debug("dispatched queued download", logging.String(logging.FieldItemID, item.ID))
	}
	if started > 0 {
		d.mu.Lock()
		d.dispatched += started
		d.mu.Unlock()
	}
	return started
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		if d.AutoStart() {
			d.DispatchOnce()
		}
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
		case <-time.After(d.pollInterval):
		}
	}
}

// StatusSummary represents lightweight dispatcher diagnostics.
type StatusSummary struct {
	Running    bool   `json:"running"`
	AutoStart  bool   `json:"auto_start"`
	Dispatched int    `json:"dispatched"`
	LastError  string `json:"last_error,omitempty"`
}

// Status returns the latest dispatcher information.
func (d *Dispatcher) Status() StatusSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	summary := StatusSummary{
		Running:    d.running,
		AutoStart:  d.autoStart,
		Dispatched: d.dispatched,
	}
	if d.lastErr != nil {
		summary.LastError = d.lastErr.Error()
	}
	return summary
}

func (d *Dispatcher) setLastError(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}
