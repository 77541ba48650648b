// Package daemon hosts the long-running reel process: it owns the download
// manager lifecycle, serves the HTTP API browsers and the CLI talk to, and
// guards against concurrent daemon instances with a lock file.
package daemon
