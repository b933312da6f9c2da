// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management and the request/response DTOs. Queue
// and history payloads reuse the api package types so the socket and the HTTP
// API describe items identically. Batch queue actions report a per-id outcome
// instead of failing the whole call when one id is unknown.
package ipc
