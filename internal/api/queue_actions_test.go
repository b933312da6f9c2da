package api

import (
	"errors"
	"fmt"
	"testing"

	"streamgrab/internal/queue"
)

func TestApplyToItemsReportsPerIDOutcome(t *testing.T) {
	action := func(id string) error {
		switch id {
		case "ok":
			return nil
		case "gone":
			return fmt.Errorf("start %s: %w", id, queue.ErrNotFound)
		default:
			return fmt.Errorf("%w: item is completed", queue.ErrInvalidState)
		}
	}

	result, err := ApplyToItems([]string{"ok", "gone", "done"}, action)
	if err != nil {
		t.Fatalf("ApplyToItems: %v", err)
	}
	if result.AppliedCount != 1 {
		t.Fatalf("AppliedCount = %d, want 1", result.AppliedCount)
	}
	want := []ItemActionOutcome{ItemActionApplied, ItemActionNotFound, ItemActionInvalidState}
	for i, outcome := range want {
		if result.Items[i].Outcome != outcome {
			t.Fatalf("item %d outcome = %s, want %s", i, result.Items[i].Outcome, outcome)
		}
	}
}

func TestApplyToItemsAbortsOnUnexpectedError(t *testing.T) {
	boom := errors.New("boom")
	_, err := ApplyToItems([]string{"a"}, func(string) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestBoolActionClassifiesRejection(t *testing.T) {
	reader := &queueReaderStub{items: []queue.Item{{ID: "a", Status: queue.StatusCompleted}}}
	action := BoolAction(reader, func(string) bool { return false })

	if err := action("a"); !errors.Is(err, queue.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := action("missing"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	accept := BoolAction(reader, func(string) bool { return true })
	if err := accept("a"); err != nil {
		t.Fatalf("accepted action returned %v", err)
	}
}
