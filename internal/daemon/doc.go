// Package daemon coordinates the long-running streamgrab process.
//
// It wires configuration, the download orchestrator, the automatic
// dispatcher, download history, and notifications into a single lifecycle
// with flock-based locking to prevent multiple instances. The daemon exposes
// queue and history helpers for the IPC layer and serves the optional HTTP
// API.
//
// Keep orchestration logic here: transfer details live in the downloader and
// transfer packages while the daemon focuses on startup, shutdown, and high
// level coordination.
package daemon
