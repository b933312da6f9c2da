// Package transfer implements the two download engines that turn a resolved
// media source into a file on disk.
//
// HLSEngine fetches an HLS playlist, follows the highest-bandwidth variant,
// appends every segment in playlist order to a uniquely named transport
// stream in the temp directory, and remuxes the result into MP4 with ffmpeg.
// DirectEngine streams a single HTTP resource to disk. Both engines share a
// Client that applies the configured User-Agent, optional Referer, response
// header timeout, and request pacing, and both honour context cancellation on
// every network read, file write, and subprocess.
//
// Engines never retry. Every error is wrapped with a services marker so the
// orchestrator can record it verbatim and the CLI can render a kind-specific
// hint.
package transfer
