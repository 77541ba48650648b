// Package services defines shared utilities consumed by the download manager
// and external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs and correlation identifiers for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     so the API surface can translate them into consistent status codes.
//
// Use these helpers when wiring new behavior so error handling and
// observability stay uniform across the daemon.
package services
