package api

import (
	"errors"
	"slices"

	"github.com/samber/lo"

	"streamgrab/internal/queue"
)

// QueueReader abstracts the orchestrator reads needed for API queries.
type QueueReader interface {
	List() []queue.Item
	Get(id string) (queue.Item, error)
	Stats() queue.Stats
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	queue QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(q QueueReader) *QueueService {
	if q == nil {
		return nil
	}
	return &QueueService{queue: q}
}

// List returns queue items in display order, optionally filtered by status.
func (s *QueueService) List(statuses ...queue.Status) []QueueItem {
	if s == nil || s.queue == nil {
		return nil
	}
	items := s.queue.List()
	if len(statuses) > 0 {
		items = lo.Filter(items, func(item queue.Item, _ int) bool {
			return slices.Contains(statuses, item.Status)
		})
	}
	return FromQueueItems(items)
}

// Stats returns the queue summary.
func (s *QueueService) Stats() QueueStats {
	if s == nil || s.queue == nil {
		return FromStats(queue.Stats{})
	}
	return FromStats(s.queue.Stats())
}

// Describe fetches a single queue item. A nil item with a nil error means the
// id is unknown.
func (s *QueueService) Describe(id string) (*QueueItem, error) {
	if s == nil || s.queue == nil {
		return nil, nil
	}
	item, err := s.queue.Get(id)
	if errors.Is(err, queue.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}

// ParseStatuses converts user supplied filters, dropping unknown values.
func ParseStatuses(values []string) []queue.Status {
	return lo.FilterMap(values, func(value string, _ int) (queue.Status, bool) {
		return queue.ParseStatus(value)
	})
}
