// Package api defines wire-format types and converters shared by the HTTP API
// and the IPC layer. It translates orchestrator, history, and dispatcher
// models into transport-friendly DTOs so clients never couple to internal
// types.
//
// # Key Types
//
// QueueItem: transport representation of a queued download with progress,
// speed, ETA, and the sources it can be fetched from.
//
// HistoryEntry: a completed download with a human readable size.
//
// DaemonStatus: aggregated runtime information including queue counts,
// dispatcher state, and external dependencies.
//
// # Converters
//
// FromQueueItem / FromQueueItems: queue.Item -> QueueItem.
//
// FromHistoryEntry / FromHistoryEntries: history.Entry -> HistoryEntry.
//
// FromStats, FromDispatcherStatus, FromDependencies: status payload pieces.
//
// # Design Notes
//
// DTOs use camelCase JSON tags for JavaScript/TypeScript consumers. Statuses
// are exposed as lowercase strings. Timestamps use RFC3339 with milliseconds.
package api
