package notifications

import (
	"context"
	"time"

	"streamgrab/internal/config"
	"streamgrab/internal/queue"
)

// ItemLookup returns the current state of a queue item.
type ItemLookup interface {
	Get(id string) (queue.Item, error)
}

// Sink forwards completed and failed queue events to a Service.
type Sink struct {
	service   Service
	items     ItemLookup
	completed bool
	failed    bool
	timeout   time.Duration
}

var _ queue.EventSink = (*Sink)(nil)

// NewSink returns a queue event sink honouring the [notifications] toggles.
func NewSink(cfg *config.Config, service Service, items ItemLookup) *Sink {
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sink{
		service:   service,
		items:     items,
		completed: cfg.Notifications.Completed,
		failed:    cfg.Notifications.Failed,
		timeout:   timeout,
	}
}

// Emit sends a notification for terminal success or failure events.
func (s *Sink) Emit(ev queue.Event) error {
	switch {
	case ev.Status == queue.StatusCompleted && s.completed:
	case ev.Status == queue.StatusFailed && s.failed:
	default:
		return nil
	}
	title := ev.ID
	if item, err := s.items.Get(ev.ID); err == nil {
		title = item.DisplayTitle()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if ev.Status == queue.StatusCompleted {
		return s.service.NotifyDownloadCompleted(ctx, title, ev.FilePath)
	}
	return s.service.NotifyDownloadFailed(ctx, title, ev.Message)
}
