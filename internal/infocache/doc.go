// Package infocache persists video metadata lookups in sqlite so repeat
// video-info requests within the TTL skip the extractor round trip.
package infocache
