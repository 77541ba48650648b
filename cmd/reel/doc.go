// Package main hosts the reel CLI entrypoint and command graph.
//
// The Cobra-based command tree covers two roles: `reel serve` runs the
// download daemon in the foreground, and the remaining commands act as HTTP
// clients against a running daemon for submitting downloads, polling
// progress, fetching finished files, and inspecting metadata. Configuration
// resolution and API client construction live in the shared command context
// so subcommands stay declarative.
package main
