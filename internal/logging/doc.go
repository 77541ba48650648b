// Package logging centralizes slog construction for the daemon and CLI.
// Console output is a single-line human-readable format with a component
// prefix; the JSON format mirrors every record into the daemon log file.
package logging
