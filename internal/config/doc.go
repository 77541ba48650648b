// Package config loads, validates, and defaults Reel's TOML configuration.
// Load resolves the effective file path (explicit flag, then
// ~/.config/reel/config.toml, then a project-local reel.toml), expands ~ in
// every path field, and fails fast on unusable values so the daemon never
// starts half-configured.
package config
