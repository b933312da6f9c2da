// Package preflight runs environment checks before the daemon starts taking
// downloads: directory permissions, the remux executable, and reachability of
// the notification endpoint.
package preflight
