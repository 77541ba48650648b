// Package notifications delivers download lifecycle events to an ntfy
// topic. Without a configured topic every notification is a no-op, so
// callers never need to guard their sends.
package notifications
