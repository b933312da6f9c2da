package history

import (
	"context"
	"log/slog"
	"os"
	"time"

	"streamgrab/internal/logging"
	"streamgrab/internal/queue"
)

const recordTimeout = 5 * time.Second

// ItemLookup returns the current state of a queue item.
type ItemLookup interface {
	Get(id string) (queue.Item, error)
}

// Recorder adds a history entry for every completed queue item.
type Recorder struct {
	store  *Store
	items  ItemLookup
	logger *slog.Logger
	now    func() time.Time
}

var _ queue.EventSink = (*Recorder)(nil)

// NewRecorder returns a queue event sink that writes to store.
func NewRecorder(store *Store, items ItemLookup, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  store,
		items:  items,
		logger: logging.NewComponentLogger(logger, "history"),
		now:    time.Now,
	}
}

// Emit records completed items and ignores every other event.
func (r *Recorder) Emit(ev queue.Event) error {
	if ev.Status != queue.StatusCompleted {
		return nil
	}
	item, err := r.items.Get(ev.ID)
	if err != nil {
		return err
	}
	path := ev.FilePath
	if path == "" {
		path = item.FilePath
	}
	var size int64
	if info, statErr := os.Stat(path); statErr == nil {
		size = info.Size()
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	entry, err := r.store.Add(ctx, Entry{
		ItemID:      item.ID,
		URL:         item.URL,
		Title:       item.DisplayTitle(),
		Thumbnail:   item.Thumbnail,
		Quality:     item.Quality,
		FilePath:    path,
		SizeBytes:   size,
		CompletedAt: r.now(),
	})
	if err != nil {
		logging.WarnWithContext(r.logger, "history entry not recorded", "history_write_failed",
			logging.String(logging.FieldItemID, ev.ID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the state directory"),
			logging.String(logging.FieldImpact, "download finished but will not appear in history"),
		)
		return err
	}
	r.logger.Debug("history entry recorded",
		logging.String(logging.FieldItemID, ev.ID),
		logging.Int64("history_id", entry.ID),
	)
	return nil
}
