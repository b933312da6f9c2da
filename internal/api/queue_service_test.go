package api

import (
	"errors"
	"testing"

	"streamgrab/internal/queue"
)

type queueReaderStub struct {
	items []queue.Item
	err   error
}

func (s *queueReaderStub) List() []queue.Item { return s.items }

func (s *queueReaderStub) Get(id string) (queue.Item, error) {
	if s.err != nil {
		return queue.Item{}, s.err
	}
	for _, item := range s.items {
		if item.ID == id {
			return item, nil
		}
	}
	return queue.Item{}, queue.ErrNotFound
}

func (s *queueReaderStub) Stats() queue.Stats {
	return queue.Stats{Total: len(s.items), ByStatus: map[queue.Status]int{queue.StatusPending: len(s.items)}}
}

func TestQueueServiceListFiltersByStatus(t *testing.T) {
	svc := NewQueueService(&queueReaderStub{items: []queue.Item{
		{ID: "a", Status: queue.StatusPending},
		{ID: "b", Status: queue.StatusFailed},
		{ID: "c", Status: queue.StatusPending},
	}})

	all := svc.List()
	if len(all) != 3 {
		t.Fatalf("List() returned %d items, want 3", len(all))
	}
	pending := svc.List(ParseStatuses([]string{"PENDING", "bogus"})...)
	if len(pending) != 2 || pending[0].ID != "a" || pending[1].ID != "c" {
		t.Fatalf("unexpected filtered items: %+v", pending)
	}
}

func TestQueueServiceDescribe(t *testing.T) {
	svc := NewQueueService(&queueReaderStub{items: []queue.Item{{ID: "a", Title: "Clip"}}})

	item, err := svc.Describe("a")
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if item == nil || item.Title != "Clip" {
		t.Fatalf("unexpected item: %+v", item)
	}

	missing, err := svc.Describe("zzz")
	if err != nil || missing != nil {
		t.Fatalf("unknown id should yield nil, nil; got %+v, %v", missing, err)
	}
}

func TestQueueServiceDescribeError(t *testing.T) {
	errSentinel := errors.New("boom")
	svc := NewQueueService(&queueReaderStub{err: errSentinel})
	if _, err := svc.Describe("a"); !errors.Is(err, errSentinel) {
		t.Fatalf("expected error %v, got %v", errSentinel, err)
	}
}

func TestNilQueueService(t *testing.T) {
	var svc *QueueService
	if svc.List() != nil {
		t.Fatal("nil service should list nothing")
	}
	if got := svc.Stats(); got.Total != 0 {
		t.Fatalf("nil service stats = %+v", got)
	}
}
