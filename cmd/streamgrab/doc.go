// Package main hosts the streamgrab CLI entrypoint and command graph.
//
// The Cobra command tree runs the daemon in the foreground, translates queue
// and history commands into JSON-RPC calls against its socket, and offers two
// local commands that need no daemon: info resolves a page and prints its
// sources, get downloads URLs in the foreground with progress bars.
//
// Configuration resolution and socket discovery live in commandContext so
// subcommands only deal with presentation.
package main
