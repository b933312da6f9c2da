// Package media holds the value types exchanged between the source resolver,
// the transfer engines, and the download orchestrator.
//
// VideoSource and VideoInfo describe what a page offers; SelectSource picks the
// source a queue item will download; the quality and URL classification
// helpers are shared by the resolver and the CLI so every surface labels
// streams the same way.
package media
