// Package config loads, normalizes, and validates streamgrab configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and clamps numeric knobs such as the download
// concurrency ceiling into their supported ranges. The Config type centralizes
// every setting the daemon and CLI need so download, temp, and state
// directories are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
