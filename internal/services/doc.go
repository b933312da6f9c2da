// Package services defines shared utilities consumed by the download engines,
// the orchestrator and the host surfaces.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, component names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the kinds surfaced to users (network, parse, io, ...).
//
// Use these helpers when wiring new download logic so operational behaviour
// (error reporting, observability) stays uniform across the pipeline.
package services
