// Package history keeps a record of completed downloads in SQLite.
//
// The Store holds at most a configured number of entries, newest first; every
// insert prunes the oldest rows beyond that limit. Recorder is a queue event
// sink that adds an entry whenever an item completes.
//
// Schema changes bump schemaVersion in schema.go; an older database must be
// deleted before the daemon starts again.
package history
