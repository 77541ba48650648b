// Package jobs holds the in-memory download job model and the mutex-guarded
// registry that owns every record's lifecycle from admission to eviction.
package jobs
