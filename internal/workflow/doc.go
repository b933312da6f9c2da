// Package workflow starts pending downloads as concurrency slots free up.
//
// The queue itself never auto-starts anything; its concurrency ceiling is
// advisory. The Dispatcher owned by the daemon is the component that honours
// it: it wakes on queue events and on a poll interval, compares ActiveCount
// against MaxConcurrent, and starts Pending items in display order until the
// ceiling is reached. Auto start can be toggled at runtime; when it is off the
// dispatcher idles and items only start on explicit request.
package workflow
