package jobs

import (
	"sort"
	"sync"
	"time"

	"reel/internal/services"
)

// Registry is the in-memory source of truth for download jobs. A single
// mutex guards two mappings: source URL to record (primary ownership) and
// job ID to URL (the index clients poll by). Both entries for a job are
// always inserted and removed together, and every admission decision runs
// as one critical section so concurrent submissions for the same URL cannot
// both pass the duplicate check.
type Registry struct {
	mu         sync.Mutex
	capacity   int
	stallAfter time.Duration
	byURL      map[string]*Record
	byID       map[string]string
}

// NewRegistry builds a registry enforcing the given concurrency cap and
// stall threshold.
func NewRegistry(capacity int, stallAfter time.Duration) *Registry {
	return &Registry{
		capacity:   capacity,
		stallAfter: stallAfter,
		byURL:      make(map[string]*Record),
		byID:       make(map[string]string),
	}
}

// Admission describes the outcome of an Admit call.
type Admission struct {
	// Record owns the URL after the call: the fresh record, or the
	// still-running one when Existing is true.
	Record Record
	// Existing is true when an in-flight job already covered the URL and no
	// new record was created.
	Existing bool
	// Replaced carries the terminal or stalled record that was evicted to
	// make room, so the caller can reclaim its artifacts.
	Replaced *Record
}

// Admit applies the submission policy atomically: capacity first, then
// URL de-duplication, then insertion. A terminal or stalled record for the
// same URL is evicted inline and reported via Replaced.
func (r *Registry) Admit(rec Record, now time.Time) (Admission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.activeLocked() >= r.capacity {
		return Admission{}, services.Wrap(services.ErrCapacity, "registry", "admit", "too many active downloads", nil)
	}

	var admission Admission
	if existing, ok := r.byURL[rec.SourceURL]; ok {
		if !existing.Terminal() && !existing.Stalled(now, r.stallAfter) {
			admission.Record = *existing
			admission.Existing = true
			return admission, nil
		}
		replaced := *existing
		r.removeLocked(existing)
		admission.Replaced = &replaced
	}

	stored := rec
	r.byURL[stored.SourceURL] = &stored
	r.byID[stored.ID] = stored.SourceURL
	admission.Record = stored
	return admission, nil
}

// ProgressEvent is one observation reported by the downloader while a job
// is running.
type ProgressEvent struct {
	Percent         float64
	DownloadedBytes int64
	TotalBytes      int64
	Speed           float64
	ETASeconds      int64
	WorkingName     string
}

// UpdateProgress applies a progress event to the job identified by (url, id).
// Updates to evicted, replaced, or terminal records are dropped. Progress
// percent never regresses; UpdatedAt always advances on an accepted event.
func (r *Registry) UpdateProgress(url, id string, ev ProgressEvent, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lookupLocked(url, id)
	if !ok || rec.Terminal() {
		return false
	}
	if ev.Percent > rec.Progress {
		rec.Progress = clampPercent(ev.Percent)
	}
	if ev.DownloadedBytes > 0 {
		rec.DownloadedBytes = ev.DownloadedBytes
	}
	if ev.TotalBytes > 0 {
		rec.TotalBytes = ev.TotalBytes
	}
	if ev.Speed > 0 {
		rec.Speed = ev.Speed
	}
	if ev.ETASeconds > 0 {
		rec.ETASeconds = ev.ETASeconds
	}
	if ev.WorkingName != "" {
		rec.WorkingName = ev.WorkingName
	}
	rec.UpdatedAt = now
	return true
}

// MarkCompleted transitions the job to the succeeded state. It is a no-op on
// records that are already terminal or no longer registered.
func (r *Registry) MarkCompleted(url, id, filename string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lookupLocked(url, id)
	if !ok || rec.Terminal() {
		return false
	}
	rec.Completed = true
	rec.Filename = filename
	rec.Progress = 100
	rec.UpdatedAt = now
	return true
}

// MarkFailed transitions the job to the failed state. It is a no-op on
// records that are already terminal or no longer registered.
func (r *Registry) MarkFailed(url, id, message string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lookupLocked(url, id)
	if !ok || rec.Terminal() {
		return false
	}
	if message == "" {
		message = "download failed"
	}
	rec.ErrorMessage = message
	rec.UpdatedAt = now
	return true
}

// ScheduleEviction stamps the record's eviction time. The first stamp wins so
// repeated cleanup sweeps do not push the grace window out indefinitely.
func (r *Registry) ScheduleEviction(url, id string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.lookupLocked(url, id)
	if !ok {
		return false
	}
	if !rec.EvictAt.IsZero() {
		return false
	}
	rec.EvictAt = at
	return true
}

// EvictDue removes every record whose eviction time has passed and returns
// copies of what was removed.
func (r *Registry) EvictDue(now time.Time) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []Record
	for _, rec := range r.byURL {
		if rec.EvictionDue(now) {
			evicted = append(evicted, *rec)
			r.removeLocked(rec)
		}
	}
	return evicted
}

// ByID returns a copy of the record the given job ID points at.
func (r *Registry) ByID(id string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	url, ok := r.byID[id]
	if !ok {
		return Record{}, false
	}
	rec, ok := r.byURL[url]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// ByURL returns a copy of the record owning the given source URL.
func (r *Registry) ByURL(url string) (Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byURL[url]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// List returns copies of all records ordered by start time, oldest first.
func (r *Registry) List() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Record, 0, len(r.byURL))
	for _, rec := range r.byURL {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// ActiveCount reports how many registered jobs are not yet terminal.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeLocked()
}

// Len reports the total number of registered jobs, terminal ones included.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byURL)
}

func (r *Registry) activeLocked() int {
	active := 0
	for _, rec := range r.byURL {
		if !rec.Terminal() {
			active++
		}
	}
	return active
}

// lookupLocked resolves (url, id) to the live record only when both still
// agree, so a stale caller can never touch a replacement job for the URL.
func (r *Registry) lookupLocked(url, id string) (*Record, bool) {
	rec, ok := r.byURL[url]
	if !ok || rec.ID != id {
		return nil, false
	}
	return rec, true
}

func (r *Registry) removeLocked(rec *Record) {
	delete(r.byURL, rec.SourceURL)
	delete(r.byID, rec.ID)
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
