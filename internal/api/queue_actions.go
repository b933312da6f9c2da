package api

import (
	"errors"
	"fmt"

	"streamgrab/internal/queue"
)

// ItemGetter looks up the current state of a queue item.
type ItemGetter interface {
	Get(id string) (queue.Item, error)
}

// ItemActionOutcome reports what happened to one id in a batch action.
type ItemActionOutcome string

const (
	ItemActionApplied      ItemActionOutcome = "applied"
	ItemActionNotFound     ItemActionOutcome = "not_found"
	ItemActionInvalidState ItemActionOutcome = "invalid_state"
)

type ItemActionResult struct {
	ID      string            `json:"id"`
	Outcome ItemActionOutcome `json:"outcome"`
	Detail  string            `json:"detail,omitempty"`
}

type ItemActionsResult struct {
	AppliedCount int                `json:"appliedCount"`
	Items        []ItemActionResult `json:"items"`
}

// ApplyToItems runs action for each id so every id can report its own
// outcome. Not-found and invalid-state errors are recorded per id; any other
// error aborts the batch.
func ApplyToItems(ids []string, action func(id string) error) (ItemActionsResult, error) {
	result := ItemActionsResult{Items: make([]ItemActionResult, 0, len(ids))}
	for _, id := range ids {
		err := action(id)
		switch {
		case err == nil:
			result.AppliedCount++
			result.Items = append(result.Items, ItemActionResult{ID: id, Outcome: ItemActionApplied})
		case errors.Is(err, queue.ErrNotFound):
			result.Items = append(result.Items, ItemActionResult{ID: id, Outcome: ItemActionNotFound})
		case errors.Is(err, queue.ErrInvalidState):
			result.Items = append(result.Items, ItemActionResult{ID: id, Outcome: ItemActionInvalidState, Detail: err.Error()})
		default:
			return ItemActionsResult{}, err
		}
	}
	return result, nil
}

// BoolAction adapts an orchestrator operation that reports success as a bool
// (Pause, Resume) to ApplyToItems.
func BoolAction(q ItemGetter, op func(id string) bool) func(id string) error {
	return func(id string) error {
		item, err := q.Get(id)
		if err != nil {
			return err
		}
		if !op(id) {
			return fmt.Errorf("%w: item is %s", queue.ErrInvalidState, item.Status)
		}
		return nil
	}
}

// CancelAction adapts Cancel, which succeeds for every id, so unknown ids
// still report not found.
func CancelAction(q ItemGetter, cancel func(id string) bool) func(id string) error {
	return func(id string) error {
		if _, err := q.Get(id); err != nil {
			return err
		}
		cancel(id)
		return nil
	}
}
