// Package api defines the JSON wire types served by the daemon's HTTP
// endpoints and ships the matching client used by the CLI.
//
// The response structs mirror the payloads browsers and scripts already
// consume: progress reports carry explicit nulls for unset filename and
// error fields, video metadata nests under a status envelope, and failures
// always arrive as {"status": "error", "message": ...}. Converters translate
// internal job records into these shapes so handlers stay thin.
//
// The Client decorates calls with request contexts and decodes the error
// envelope into APIError so CLI commands can report the daemon's own message
// alongside the HTTP status.
package api
