package downloads

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"reel/internal/config"
	"reel/internal/fileutil"
	"reel/internal/jobs"
	"reel/internal/logging"
)

// reaper periodically flags downloads that stopped making progress or ran
// past the overall budget, sweeps orphaned partial artifacts, and evicts
// finished records once their grace window expires. Each pass works on
// registry snapshots so disk I/O never runs under the registry lock.
type reaper struct {
	registry    *jobs.Registry
	logger      *slog.Logger
	downloadDir string
	interval    time.Duration
	stallAfter  time.Duration
	maxRuntime  time.Duration
	grace       time.Duration
	now         func() time.Time
}

func newReaper(cfg *config.Config, registry *jobs.Registry, logger *slog.Logger, now func() time.Time) *reaper {
	return &reaper{
		registry:    registry,
		logger:      logging.WithComponent(logger, "reaper"),
		downloadDir: cfg.Paths.DownloadDir,
		interval:    time.Duration(cfg.Downloads.ReapInterval) * time.Second,
		stallAfter:  time.Duration(cfg.Downloads.StallTimeout) * time.Second,
		maxRuntime:  time.Duration(cfg.Downloads.DownloadTimeout) * time.Second,
		grace:       time.Duration(cfg.Downloads.CleanupGrace) * time.Second,
		now:         now,
	}
}

// Run executes reaper passes until the context is cancelled.
func (r *reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(r.now())
		}
	}
}

// tick runs one reaper pass. Passes are level triggered: every decision is
// recomputed from record timestamps, so a pass that observes no change is a
// no-op and repeated passes converge on the same outcome.
func (r *reaper) tick(now time.Time) {
	for _, rec := range r.registry.List() {
		if rec.Terminal() {
			continue
		}
		switch {
		case rec.TimedOut(now, r.maxRuntime):
			if r.registry.MarkFailed(rec.SourceURL, rec.ID, fmt.Sprintf("download timed out after %s", r.maxRuntime), now) {
				r.logger.Warn("download exceeded time budget",
					logging.String("job_id", rec.ID),
					logging.String("url", rec.SourceURL),
					logging.Duration("runtime", now.Sub(rec.StartedAt)))
			}
		case rec.Stalled(now, r.stallAfter):
			if r.registry.MarkFailed(rec.SourceURL, rec.ID, fmt.Sprintf("download stalled: no progress for %s", r.stallAfter), now) {
				r.logger.Warn("download stalled",
					logging.String("job_id", rec.ID),
					logging.String("url", rec.SourceURL),
					logging.Duration("since_update", now.Sub(rec.UpdatedAt)))
			}
		}
	}

	snapshot := r.registry.List()

	removed, err := fileutil.PurgeTransient(r.downloadDir, activeStems(snapshot))
	if err != nil {
		r.logger.Warn("artifact sweep failed", logging.Error(err))
	} else if len(removed) > 0 {
		r.logger.Info("swept orphaned artifacts", logging.Int("count", len(removed)))
	}

	for _, rec := range snapshot {
		if rec.Terminal() && rec.EvictAt.IsZero() {
			r.registry.ScheduleEviction(rec.SourceURL, rec.ID, now.Add(r.grace))
		}
	}
	for _, rec := range r.registry.EvictDue(now) {
		r.logger.Info("evicted finished download",
			logging.String("job_id", rec.ID),
			logging.String("url", rec.SourceURL),
			logging.String("state", string(rec.State())))
	}
}
