package queue

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"streamgrab/internal/logging"
	"streamgrab/internal/media"
	"streamgrab/internal/services"
)

const (
	// DefaultMaxConcurrent is the dispatch ceiling used when none is configured.
	DefaultMaxConcurrent = 2
	// MinConcurrent and MaxConcurrentLimit bound SetMaxConcurrent.
	MinConcurrent      = 1
	MaxConcurrentLimit = 5

	component = "queue"

	// inFlightCeiling keeps a running item below 100 until it is Completed.
	inFlightCeiling = 99
	// progressLogBucket is the percent step between progress log lines.
	progressLogBucket = 10
)

// Runner performs the transfer for one item and returns the final file path.
// It must honour ctx cancellation.
type Runner interface {
	Run(ctx context.Context, item Item, progress media.ProgressFunc) (string, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, item Item, progress media.ProgressFunc) (string, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, item Item, progress media.ProgressFunc) (string, error) {
	return f(ctx, item, progress)
}

// EventSink receives queue events. Emit is called synchronously from the
// goroutine that caused the change; errors are logged and otherwise ignored.
type EventSink interface {
	Emit(Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(Event) error

// Emit calls f.
func (f EventSinkFunc) Emit(ev Event) error { return f(ev) }

// Options configures an Orchestrator.
type Options struct {
	MaxConcurrent int
	Logger        *slog.Logger
	Sinks         []EventSink
	// Now overrides the clock used for AddedAt, speed and ETA.
	Now func() time.Time
}

// registration is the cancel handle of one running transfer. It is compared by
// pointer so a finished goroutine can tell whether it still owns the item.
type registration struct {
	cancel  context.CancelFunc
	started time.Time
	sampler *logging.ProgressSampler
}

// Orchestrator owns the queue. All item mutation goes through its methods.
type Orchestrator struct {
	runner Runner
	logger *slog.Logger
	now    func() time.Time

	mu            sync.Mutex
	items         []*Item
	active        map[string]*registration
	maxConcurrent int

	sinksMu sync.RWMutex
	sinks   []EventSink

	wg sync.WaitGroup
}

// New creates an empty queue that runs transfers with runner.
func New(runner Runner, opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	limit := opts.MaxConcurrent
	if limit == 0 {
		limit = DefaultMaxConcurrent
	}
	return &Orchestrator{
		runner:        runner,
		logger:        logging.NewComponentLogger(opts.Logger, component),
		now:           now,
		active:        make(map[string]*registration),
		maxConcurrent: lo.Clamp(limit, MinConcurrent, MaxConcurrentLimit),
		sinks:         slices.Clone(opts.Sinks),
	}
}

// Subscribe adds a sink after construction.
func (o *Orchestrator) Subscribe(sink EventSink) {
	if sink == nil {
		return
	}
	o.sinksMu.Lock()
	o.sinks = append(o.sinks, sink)
	o.sinksMu.Unlock()
}

// Enqueue appends a Pending item and returns its id. It never starts the
// transfer.
func (o *Orchestrator) Enqueue(meta Metadata) string {
	item := &Item{
		ID:             uuid.NewString(),
		URL:            meta.URL,
		Title:          meta.Title,
		Thumbnail:      meta.Thumbnail,
		Quality:        meta.Quality,
		OutputDir:      meta.OutputDir,
		OutputFilename: meta.OutputFilename,
		Status:         StatusPending,
		AddedAt:        o.now().UTC(),
		Sources:        slices.Clone(meta.Sources),
	}

	o.mu.Lock()
	o.items = append(o.items, item)
	o.mu.Unlock()

	o.logger.Info("item queued",
		logging.String(logging.FieldItemID, item.ID),
		logging.String("url", item.URL),
		logging.String("title", item.Title),
	)
	o.emit(Event{ID: item.ID, Status: StatusPending, Message: "Queued"})
	return item.ID
}

// List returns a snapshot of every item in display order.
func (o *Orchestrator) List() []Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	return lo.Map(o.items, func(item *Item, _ int) Item { return item.clone() })
}

// Get returns a snapshot of one item.
func (o *Orchestrator) Get(id string) (Item, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	item := o.findLocked(id)
	if item == nil {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return item.clone(), nil
}

// PendingItems returns the Pending items in display order.
func (o *Orchestrator) PendingItems() []Item {
	o.mu.Lock()
	defer o.mu.Unlock()
	return lo.FilterMap(o.items, func(item *Item, _ int) (Item, bool) {
		return item.clone(), item.Status == StatusPending
	})
}

// Start launches the transfer for a Pending or Paused item.
func (o *Orchestrator) Start(id string) error {
	o.mu.Lock()
	item := o.findLocked(id)
	if item == nil {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !item.Status.Startable() {
		status := item.Status
		o.mu.Unlock()
		return fmt.Errorf("%w: item %s is %s", ErrInvalidState, id, status)
	}

	ctx, cancel := context.WithCancel(services.WithItemID(context.Background(), id))
	reg := &registration{cancel: cancel, started: o.now(), sampler: logging.NewProgressSampler(progressLogBucket)}
	o.active[id] = reg

	item.Status = StatusDownloading
	item.Progress = 0
	item.Speed = ""
	item.ETA = ""
	item.Error = ""
	item.FilePath = ""
	snapshot := item.clone()
	o.wg.Add(1)
	o.mu.Unlock()

	o.emit(Event{ID: id, Status: StatusDownloading, Message: "Starting download"})
	go o.run(ctx, reg, snapshot)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, reg *registration, item Item) {
	defer o.wg.Done()
	defer reg.cancel()

	logger := o.logger.With(logging.String(logging.FieldItemID, item.ID))
	logger.Info("download started",
		logging.String(logging.FieldEventType, "download_start"),
		logging.String("url", item.URL),
		logging.String("quality", item.Quality),
	)

	path, err := o.runner.Run(ctx, item, func(p media.Progress) {
		o.recordProgress(reg, item.ID, p)
	})
	if err == nil && path == "" {
		err = services.Wrap(services.ErrDownloadFailed, component, "finish", "runner returned no output path", nil)
	}
	o.finish(reg, item.ID, path, err, logger)
}

func (o *Orchestrator) recordProgress(reg *registration, id string, p media.Progress) {
	o.mu.Lock()
	if o.active[id] != reg {
		o.mu.Unlock()
		return
	}
	item := o.findLocked(id)
	if item == nil {
		o.mu.Unlock()
		return
	}
	percent := min(p.Percent, inFlightCeiling)
	if percent > item.Progress {
		item.Progress = percent
	}
	elapsed := o.now().Sub(reg.started)
	item.Speed = formatSpeed(p.Bytes, elapsed)
	item.ETA = formatETA(item.Progress, elapsed)
	ev := Event{
		ID:       id,
		Status:   item.Status,
		Progress: item.Progress,
		Speed:    item.Speed,
		ETA:      item.ETA,
		Message:  p.Message,
	}
	logProgress := reg.sampler.ShouldLog(item.Progress)
	o.mu.Unlock()

	if logProgress {
		o.logger.Info("download progress",
			logging.String(logging.FieldItemID, id),
			logging.String(logging.FieldEventType, "download_progress"),
			logging.Float64("percent", ev.Progress),
			logging.String("speed", ev.Speed),
			logging.String("eta", ev.ETA),
		)
	}
	o.emit(ev)
}

func (o *Orchestrator) finish(reg *registration, id, path string, runErr error, logger *slog.Logger) {
	o.mu.Lock()
	if o.active[id] != reg {
		o.mu.Unlock()
		logger.Debug("transfer ended after its registration was released",
			logging.String("kind", string(services.KindOf(runErr))),
		)
		return
	}
	delete(o.active, id)
	item := o.findLocked(id)
	if item == nil {
		o.mu.Unlock()
		return
	}

	item.Speed = ""
	item.ETA = ""
	var ev Event
	if runErr != nil {
		item.Status = StatusFailed
		item.Error = runErr.Error()
		item.FilePath = ""
		ev = Event{ID: id, Status: StatusFailed, Progress: item.Progress, Message: item.Error}
	} else {
		item.Status = StatusCompleted
		item.Progress = 100
		item.Error = ""
		item.FilePath = path
		ev = Event{ID: id, Status: StatusCompleted, Progress: 100, Message: "Download complete", FilePath: path}
	}
	o.mu.Unlock()

	if runErr != nil {
		logging.ErrorWithContext(logger, "download failed", "download_failed", logging.ErrorAttrs(runErr)...)
	} else {
		logger.Info("download completed",
			logging.String(logging.FieldEventType, "download_complete"),
			logging.String("file_path", path),
		)
	}
	o.emit(ev)
}

// Pause stops a running transfer and marks the item Paused. It returns false
// and changes nothing when the item is not running.
func (o *Orchestrator) Pause(id string) bool {
	o.mu.Lock()
	reg, ok := o.active[id]
	if !ok {
		o.mu.Unlock()
		return false
	}
	delete(o.active, id)
	reg.cancel()
	ev := Event{ID: id, Status: StatusPaused, Message: "Paused"}
	if item := o.findLocked(id); item != nil {
		item.Status = StatusPaused
		item.Speed = ""
		item.ETA = ""
		ev.Progress = item.Progress
	}
	o.mu.Unlock()

	o.logger.Info("download paused", logging.String(logging.FieldItemID, id))
	o.emit(ev)
	return true
}

// Resume returns a Paused item to Pending. It does not start it.
func (o *Orchestrator) Resume(id string) bool {
	o.mu.Lock()
	item := o.findLocked(id)
	if item == nil || item.Status != StatusPaused {
		o.mu.Unlock()
		return false
	}
	item.Status = StatusPending
	ev := Event{ID: id, Status: StatusPending, Progress: item.Progress, Message: "Resumed"}
	o.mu.Unlock()

	o.logger.Info("download resumed", logging.String(logging.FieldItemID, id))
	o.emit(ev)
	return true
}

// Cancel stops the transfer if one is running and marks the item Cancelled.
// It always returns true.
func (o *Orchestrator) Cancel(id string) bool {
	o.mu.Lock()
	o.releaseLocked(id)
	item := o.findLocked(id)
	if item == nil {
		o.mu.Unlock()
		return true
	}
	item.Status = StatusCancelled
	item.Speed = ""
	item.ETA = ""
	item.Error = ""
	item.FilePath = ""
	ev := Event{ID: id, Status: StatusCancelled, Progress: item.Progress, Message: "Cancelled"}
	o.mu.Unlock()

	o.logger.Info("download cancelled", logging.String(logging.FieldItemID, id))
	o.emit(ev)
	return true
}

// Remove cancels the item if it is running and deletes it from the queue.
func (o *Orchestrator) Remove(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.releaseLocked(id)
	idx := o.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	o.items = slices.Delete(o.items, idx, idx+1)
	o.logger.Info("item removed", logging.String(logging.FieldItemID, id))
	return nil
}

// ClearCompleted deletes every Completed and Failed item and returns how many
// were removed.
func (o *Orchestrator) ClearCompleted() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	before := len(o.items)
	o.items = lo.Filter(o.items, func(item *Item, _ int) bool {
		return item.Status != StatusCompleted && item.Status != StatusFailed
	})
	removed := before - len(o.items)
	if removed > 0 {
		o.logger.Info("finished items cleared", logging.Int("count", removed))
	}
	return removed
}

// ClearAll cancels every running transfer and empties the queue. Each
// transfer that was running is reported to the sinks as Cancelled.
func (o *Orchestrator) ClearAll() int {
	o.mu.Lock()
	events := make([]Event, 0, len(o.active))
	for id := range o.active {
		o.releaseLocked(id)
		ev := Event{ID: id, Status: StatusCancelled, Message: "Cancelled"}
		if item := o.findLocked(id); item != nil {
			ev.Progress = item.Progress
		}
		events = append(events, ev)
	}
	removed := len(o.items)
	o.items = nil
	o.mu.Unlock()

	o.logger.Info("queue cleared", logging.Int("count", removed))
	for _, ev := range events {
		o.emit(ev)
	}
	return removed
}

// Move shifts an item one position in display order. Moving past either end
// is a no-op.
func (o *Orchestrator) Move(id string, dir Direction) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	idx := o.indexLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	target := idx
	switch dir {
	case DirectionUp:
		target = idx - 1
	case DirectionDown:
		target = idx + 1
	default:
		return fmt.Errorf("invalid direction %q", dir)
	}
	if target < 0 || target >= len(o.items) {
		return nil
	}
	o.items[idx], o.items[target] = o.items[target], o.items[idx]
	return nil
}

// SetMaxConcurrent stores the dispatch ceiling clamped to [1,5] and returns the
// stored value.
func (o *Orchestrator) SetMaxConcurrent(n int) int {
	clamped := lo.Clamp(n, MinConcurrent, MaxConcurrentLimit)
	o.mu.Lock()
	o.maxConcurrent = clamped
	o.mu.Unlock()
	o.logger.Info("max concurrent downloads updated", logging.Int("max_concurrent", clamped))
	return clamped
}

// MaxConcurrent returns the dispatch ceiling.
func (o *Orchestrator) MaxConcurrent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.maxConcurrent
}

// ActiveCount returns the number of running transfers.
func (o *Orchestrator) ActiveCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.active)
}

// IsActive reports whether id has a running transfer.
func (o *Orchestrator) IsActive(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.active[id]
	return ok
}

// Stats summarises the queue.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stats{
		Total:         len(o.items),
		Active:        len(o.active),
		MaxConcurrent: o.maxConcurrent,
		ByStatus:      lo.CountValuesBy(o.items, func(item *Item) Status { return item.Status }),
	}
}

// Wait blocks until every transfer goroutine has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Shutdown pauses every running item so it can be resumed later, then waits
// for the transfer goroutines to exit or ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	events := make([]Event, 0, len(o.active))
	for id := range o.active {
		o.releaseLocked(id)
		if item := o.findLocked(id); item != nil {
			item.Status = StatusPaused
			item.Speed = ""
			item.ETA = ""
			events = append(events, Event{ID: id, Status: StatusPaused, Progress: item.Progress, Message: "Paused"})
		}
	}
	o.mu.Unlock()

	for _, ev := range events {
		o.emit(ev)
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) releaseLocked(id string) {
	if reg, ok := o.active[id]; ok {
		delete(o.active, id)
		reg.cancel()
	}
}

func (o *Orchestrator) findLocked(id string) *Item {
	if idx := o.indexLocked(id); idx >= 0 {
		return o.items[idx]
	}
	return nil
}

func (o *Orchestrator) indexLocked(id string) int {
	_, idx, ok := lo.FindIndexOf(o.items, func(item *Item) bool { return item.ID == id })
	if !ok {
		return -1
	}
	return idx
}

func (o *Orchestrator) emit(ev Event) {
	o.sinksMu.RLock()
	sinks := slices.Clone(o.sinks)
	o.sinksMu.RUnlock()
	for _, sink := range sinks {
		if err := sink.Emit(ev); err != nil {
			o.logger.Debug("event sink failed",
				logging.String(logging.FieldItemID, ev.ID),
				logging.String("status", string(ev.Status)),
				logging.Error(err),
			)
		}
	}
}

func formatSpeed(bytes int64, elapsed time.Duration) string {
	if bytes <= 0 || elapsed <= 0 {
		return ""
	}
	rate := float64(bytes) / elapsed.Seconds()
	return humanize.Bytes(uint64(rate)) + "/s"
}

func formatETA(percent float64, elapsed time.Duration) string {
	if percent <= 0 || percent >= 100 || elapsed <= 0 {
		return ""
	}
	remaining := time.Duration(float64(elapsed) * (100 - percent) / percent)
	return remaining.Round(time.Second).String()
}
