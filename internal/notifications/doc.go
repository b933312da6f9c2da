// Package notifications delivers download outcomes via ntfy.
//
// NewService publishes to the topic URL configured in config.toml and
// degrades to a no-op when no topic is set. Sink adapts a Service to the
// queue's event stream so completed and failed downloads notify without the
// queue knowing about HTTP.
package notifications
