package ipc

import "streamgrab/internal/api"

// QueueItem mirrors the HTTP API queue DTO for internal IPC callers.
type QueueItem = api.QueueItem

// HistoryEntry mirrors the HTTP API history DTO.
type HistoryEntry = api.HistoryEntry

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon, queue, and dispatcher status.
type StatusResponse = api.DaemonStatus

// QueueAddRequest enqueues a download.
type QueueAddRequest = api.EnqueueRequest

// QueueAddResponse contains the queued item.
type QueueAddResponse struct {
	Item QueueItem `json:"item"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries in display order.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueDescribeRequest fetches a single queue item by id.
type QueueDescribeRequest struct {
	ID string `json:"id"`
}

// QueueDescribeResponse contains a single queue entry.
type QueueDescribeResponse struct {
	Item QueueItem `json:"item"`
}

// QueueActionRequest names the items a start, pause, resume, cancel, or
// remove call applies to.
type QueueActionRequest struct {
	IDs []string `json:"ids"`
}

// QueueActionResponse reports the outcome per id.
type QueueActionResponse = api.ItemActionsResult

// QueueMoveRequest shifts one item up or down in display order.
type QueueMoveRequest struct {
	ID        string `json:"id"`
	Direction string `json:"direction"`
}

// QueueMoveResponse returns the queue in its new order.
type QueueMoveResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueClearRequest removes finished items, or every item when All is set.
type QueueClearRequest struct {
	All bool `json:"all"`
}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int `json:"removed"`
}

// QueueConcurrencyRequest updates the concurrency ceiling. Zero only reads it.
type QueueConcurrencyRequest struct {
	MaxConcurrent int `json:"max_concurrent"`
}

// QueueConcurrencyResponse reports the stored (clamped) ceiling.
type QueueConcurrencyResponse struct {
	MaxConcurrent int `json:"max_concurrent"`
}

// AutoStartRequest toggles automatic dispatch. A nil Enabled only reads it.
type AutoStartRequest struct {
	Enabled *bool `json:"enabled,omitempty"`
}

// AutoStartResponse reports whether automatic dispatch is on.
type AutoStartResponse struct {
	Enabled bool `json:"enabled"`
}

// HistoryListRequest limits the number of history entries returned.
type HistoryListRequest struct {
	Limit int `json:"limit"`
}

// HistoryListResponse contains history entries, newest first.
type HistoryListResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// HistoryRemoveRequest deletes one history entry.
type HistoryRemoveRequest struct {
	ID int64 `json:"id"`
}

// HistoryRemoveResponse confirms the removal.
type HistoryRemoveResponse struct {
	Removed bool `json:"removed"`
}

// HistoryClearRequest removes every history entry.
type HistoryClearRequest struct{}

// HistoryClearResponse reports number of removed entries.
type HistoryClearResponse struct {
	Removed int64 `json:"removed"`
}

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports whether the notification was sent.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
