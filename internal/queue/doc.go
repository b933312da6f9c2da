// Package queue owns the in-memory download queue and the lifecycle of every
// item in it.
//
// The Orchestrator is the only component that mutates items. It hands each
// started item to a Runner on its own goroutine together with a cancellable
// context, records progress reported by the runner, and publishes Events to
// the configured sinks. Pause, Cancel, Remove and ClearAll cancel that context
// so the transfer really stops; a job whose registration has been torn down
// can never overwrite the status that the caller set.
//
// The concurrency ceiling is advisory. Start never blocks on it; the daemon's
// dispatcher consults MaxConcurrent and ActiveCount before starting pending
// items.
package queue
