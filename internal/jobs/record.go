package jobs

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Platform identifies a supported video source.
type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformTikTok  Platform = "tiktok"
)

var platformSet = map[Platform]struct{}{
	PlatformYouTube: {},
	PlatformTikTok:  {},
}

// ParsePlatform converts a string into a known Platform.
func ParsePlatform(value string) (Platform, bool) {
	normalized := Platform(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := platformSet[normalized]
	return normalized, ok
}

// PlatformForURL infers the hosting platform from a download URL.
func PlatformForURL(raw string) (Platform, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("url required")
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("invalid url %q", raw)
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	switch {
	case host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com"):
		return PlatformYouTube, nil
	case host == "tiktok.com" || strings.HasSuffix(host, ".tiktok.com"):
		return PlatformTikTok, nil
	}
	return "", fmt.Errorf("unsupported platform host %q", host)
}

// Format selects the delivered media kind. Wire values mirror the file
// extension clients receive.
type Format string

const (
	FormatAudio Format = "mp3"
	FormatVideo Format = "mp4"
)

var formatSet = map[Format]struct{}{
	FormatAudio: {},
	FormatVideo: {},
}

// ParseFormat converts a string into a known Format.
func ParseFormat(value string) (Format, bool) {
	normalized := Format(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := formatSet[normalized]
	return normalized, ok
}

// Extension returns the file extension (without dot) the format produces.
func (f Format) Extension() string {
	return string(f)
}

// State is the client-visible lifecycle of a job.
type State string

const (
	StateDownloading State = "downloading"
	StateCompleted   State = "completed"
	StateError       State = "error"
)

// Record tracks one download job. The registry owns the canonical copy;
// accessors hand out value copies so callers never share mutable state.
type Record struct {
	ID              string
	SourceURL       string
	Platform        Platform
	Format          Format
	Progress        float64
	DownloadedBytes int64
	TotalBytes      int64
	Speed           float64
	ETASeconds      int64
	StartedAt       time.Time
	UpdatedAt       time.Time
	Completed       bool
	ErrorMessage    string
	Filename        string // final result name, set only on completion
	WorkingName     string // in-flight name reported by the downloader
	EvictAt         time.Time
}

// State derives the client-visible state. An error marker wins over the
// completed flag; the two are never both set by registry mutations.
func (r Record) State() State {
	switch {
	case r.ErrorMessage != "":
		return StateError
	case r.Completed:
		return StateCompleted
	default:
		return StateDownloading
	}
}

// Terminal reports whether the job finished, successfully or not.
func (r Record) Terminal() bool {
	return r.Completed || r.ErrorMessage != ""
}

// Stalled reports whether the job has gone without a progress update for
// longer than the stall threshold. Terminal records never stall.
func (r Record) Stalled(now time.Time, stallAfter time.Duration) bool {
	if r.Terminal() {
		return false
	}
	return now.Sub(r.UpdatedAt) > stallAfter
}

// TimedOut reports whether the job exceeded the overall download budget.
func (r Record) TimedOut(now time.Time, limit time.Duration) bool {
	if r.Terminal() {
		return false
	}
	return now.Sub(r.StartedAt) > limit
}

// EvictionDue reports whether a scheduled eviction time has passed.
func (r Record) EvictionDue(now time.Time) bool {
	return !r.EvictAt.IsZero() && !now.Before(r.EvictAt)
}
