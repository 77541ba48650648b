package downloads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"reel/internal/config"
	"reel/internal/fileutil"
	"reel/internal/infocache"
	"reel/internal/jobs"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/services"
	"reel/internal/services/ytdlp"
)

// Downloader is the external fetch surface the manager drives. The yt-dlp
// client satisfies it; tests substitute scripted implementations.
type Downloader interface {
	Download(ctx context.Context, req ytdlp.Request, progress func(ytdlp.ProgressUpdate)) (string, error)
	ExtractInfo(ctx context.Context, url string) (*ytdlp.Info, error)
}

// Manager owns the download lifecycle: it admits submissions into the job
// registry, runs one goroutine per accepted job, and answers progress and
// file queries. A background reaper flags stalled and expired jobs and
// reclaims their artifacts.
type Manager struct {
	cfg      *config.Config
	registry *jobs.Registry
	client   Downloader
	cache    *infocache.Cache
	notifier notifications.Service
	logger   *slog.Logger
	ffmpeg   string
	now      func() time.Time

	reaper *reaper

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	runCtx  context.Context
	wg      sync.WaitGroup
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithDownloader replaces the yt-dlp client (used in tests).
func WithDownloader(d Downloader) Option {
	return func(m *Manager) { m.client = d }
}

// WithInfoCache attaches a metadata cache. A nil cache disables caching.
func WithInfoCache(cache *infocache.Cache) Option {
	return func(m *Manager) { m.cache = cache }
}

// WithFFmpegLocation pins the ffmpeg binary passed to yt-dlp.
func WithFFmpegLocation(path string) Option {
	return func(m *Manager) { m.ffmpeg = path }
}

// NewManager constructs a download manager. Unless WithDownloader overrides
// it, the manager drives the configured yt-dlp binary.
func NewManager(cfg *config.Config, registry *jobs.Registry, notifier notifications.Service, logger *slog.Logger, opts ...Option) (*Manager, error) {
	m := &Manager{
		cfg:      cfg,
		registry: registry,
		notifier: notifier,
		logger:   logging.WithComponent(logger, "downloads"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.client == nil {
		client, err := ytdlp.New(cfg.YtdlpBinary(), cfg.Downloads.InfoTimeout)
		if err != nil {
			return nil, fmt.Errorf("build yt-dlp client: %w", err)
		}
		m.client = client
	}
	m.reaper = newReaper(cfg, registry, m.logger, m.now)
	return m, nil
}

// Start sweeps leftover artifacts from previous runs and launches the reaper.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("download manager already running")
	}

	if err := os.MkdirAll(m.cfg.Paths.DownloadDir, 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	if err := fileutil.EnsureWritable(m.cfg.Paths.DownloadDir); err != nil {
		return fmt.Errorf("download directory not writable: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.runCtx = runCtx
	m.cancel = cancel
	m.running = true

	if removed, err := fileutil.PurgeTransient(m.cfg.Paths.DownloadDir, nil); err != nil {
		m.logger.Warn("startup artifact sweep failed", logging.Error(err))
	} else if len(removed) > 0 {
		m.logger.Info("removed leftover artifacts from previous run", logging.Int("count", len(removed)))
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.reaper.Run(runCtx)
	}()

	m.logger.Info("download manager started",
		logging.Int("max_concurrent", m.cfg.Downloads.MaxConcurrent),
		logging.String("download_dir", m.cfg.Paths.DownloadDir))
	return nil
}

// Stop cancels in-flight downloads and waits for every worker to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
	m.logger.Info("download manager stopped")
}

// Submission is the outcome of a download request.
type Submission struct {
	Record jobs.Record
	// Existing is true when the URL was already being downloaded and the
	// caller was attached to the running job instead of starting a new one.
	Existing bool
}

// Submit validates a download request, admits it into the registry, and
// launches the transfer. Duplicate submissions for an actively downloading
// URL return the running job; a finished or stalled predecessor is cleaned
// up and replaced.
func (m *Manager) Submit(rawURL, rawPlatform, rawFormat string) (Submission, error) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return Submission{}, services.Wrap(services.ErrValidation, "downloads", "submit", "url is required", nil)
	}
	platform, err := parsePlatform(rawPlatform)
	if err != nil {
		return Submission{}, err
	}
	format, err := parseFormat(rawFormat)
	if err != nil {
		return Submission{}, err
	}

	now := m.now()
	rec := jobs.Record{
		ID:        uuid.NewString(),
		SourceURL: url,
		Platform:  platform,
		Format:    format,
		StartedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return Submission{}, services.Wrap(services.ErrConfiguration, "downloads", "submit", "download manager is not running", nil)
	}
	runCtx := m.runCtx
	admission, err := m.registry.Admit(rec, now)
	if err != nil {
		m.mu.Unlock()
		return Submission{}, err
	}
	if admission.Existing {
		m.mu.Unlock()
		m.logger.Info("submission joined active download",
			logging.String("job_id", admission.Record.ID),
			logging.String("url", url))
		return Submission{Record: admission.Record, Existing: true}, nil
	}
	m.wg.Add(1)
	m.mu.Unlock()

	if admission.Replaced != nil {
		m.reclaimReplaced(admission.Replaced)
	}

	go m.runDownload(runCtx, admission.Record)

	m.logger.Info("download accepted",
		logging.String("job_id", admission.Record.ID),
		logging.String("url", url),
		logging.String("platform", string(platform)),
		logging.String("format", string(format)))
	return Submission{Record: admission.Record}, nil
}

// Progress returns the current record for a job ID.
func (m *Manager) Progress(id string) (jobs.Record, error) {
	rec, ok := m.registry.ByID(id)
	if !ok {
		return jobs.Record{}, services.Wrap(services.ErrNotFound, "downloads", "progress", fmt.Sprintf("no download with id %s", id), nil)
	}
	return rec, nil
}

// File resolves the finished result for a job ID to an absolute path. Jobs
// that have not completed yield ErrNotReady; missing jobs or files yield
// ErrNotFound.
func (m *Manager) File(id string) (string, jobs.Record, error) {
	rec, ok := m.registry.ByID(id)
	if !ok {
		return "", jobs.Record{}, services.Wrap(services.ErrNotFound, "downloads", "file", fmt.Sprintf("no download with id %s", id), nil)
	}
	if rec.State() != jobs.StateCompleted || rec.Filename == "" {
		return "", jobs.Record{}, services.Wrap(services.ErrNotReady, "downloads", "file", "download not completed", nil)
	}
	path := filepath.Join(m.cfg.Paths.DownloadDir, rec.Filename)
	if _, err := os.Stat(path); err != nil {
		return "", jobs.Record{}, services.Wrap(services.ErrNotFound, "downloads", "file", "result file no longer available", err)
	}
	return path, rec, nil
}

// VideoInfo fetches metadata for a URL, consulting the cache first. An
// extraction failure is reported as not found so clients see a lookup miss
// rather than a server fault.
func (m *Manager) VideoInfo(ctx context.Context, rawURL, rawPlatform string) (*ytdlp.Info, error) {
	url := strings.TrimSpace(rawURL)
	if url == "" {
		return nil, services.Wrap(services.ErrValidation, "downloads", "video info", "url is required", nil)
	}
	platform, err := parsePlatform(rawPlatform)
	if err != nil {
		return nil, err
	}

	if cached, err := m.cache.Lookup(ctx, platform, url); err != nil {
		m.logger.Warn("info cache lookup failed", logging.Error(err))
	} else if cached != nil {
		return cached, nil
	}

	info, err := m.client.ExtractInfo(ctx, url)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "downloads", "video info", "could not retrieve video information", err)
	}
	if err := m.cache.Store(ctx, platform, url, info); err != nil {
		m.logger.Warn("info cache store failed", logging.Error(err))
	}
	return info, nil
}

// Jobs returns all registered jobs, oldest first.
func (m *Manager) Jobs() []jobs.Record {
	return m.registry.List()
}

// ActiveCount reports how many downloads are currently in flight.
func (m *Manager) ActiveCount() int {
	return m.registry.ActiveCount()
}

func (m *Manager) runDownload(ctx context.Context, rec jobs.Record) {
	defer m.wg.Done()

	ctx = services.WithJobID(ctx, rec.ID)
	log := logging.WithContext(ctx, m.logger)

	req := ytdlp.Request{
		URL:                  rec.SourceURL,
		Kind:                 outputKind(rec.Format),
		OutputDir:            m.cfg.Paths.DownloadDir,
		Retries:              m.cfg.Downloads.Retries,
		SocketTimeoutSeconds: m.cfg.Downloads.SocketTimeout,
		FFmpegLocation:       m.ffmpeg,
	}

	path, err := m.client.Download(ctx, req, func(update ytdlp.ProgressUpdate) {
		m.registry.UpdateProgress(rec.SourceURL, rec.ID, jobs.ProgressEvent{
			Percent:         update.Percent,
			DownloadedBytes: update.DownloadedBytes,
			TotalBytes:      update.TotalBytes,
			Speed:           update.Speed,
			ETASeconds:      int64(update.ETASeconds),
			WorkingName:     update.Filename,
		}, m.now())
	})
	if err != nil {
		message := strings.TrimSpace(err.Error())
		if !m.registry.MarkFailed(rec.SourceURL, rec.ID, message, m.now()) {
			return
		}
		log.Error("download failed",
			logging.String("url", rec.SourceURL),
			logging.Error(err))
		if ctx.Err() != nil {
			return
		}
		if nerr := m.notifier.NotifyDownloadFailed(ctx, rec.SourceURL, message); nerr != nil {
			log.Warn("failure notification not delivered", logging.Error(nerr))
		}
		return
	}

	filename := filepath.Base(path)
	if !m.registry.MarkCompleted(rec.SourceURL, rec.ID, filename, m.now()) {
		// The reaper flagged the job before the transfer finished; the
		// artifact stays on disk until the next sweep collects it.
		log.Warn("download finished after its record was retired",
			logging.String("url", rec.SourceURL))
		return
	}
	log.Info("download completed",
		logging.String("url", rec.SourceURL),
		logging.String("filename", filename))
	title := strings.TrimSuffix(filename, filepath.Ext(filename))
	if nerr := m.notifier.NotifyDownloadCompleted(ctx, title, filename); nerr != nil {
		log.Warn("completion notification not delivered", logging.Error(nerr))
	}
}

// reclaimReplaced sweeps artifacts left behind by the record a fresh
// submission displaced. Partials owned by still-active jobs survive.
func (m *Manager) reclaimReplaced(replaced *jobs.Record) {
	m.logger.Info("replacing previous download for url",
		logging.String("job_id", replaced.ID),
		logging.String("url", replaced.SourceURL),
		logging.String("state", string(replaced.State())))
	removed, err := fileutil.PurgeTransient(m.cfg.Paths.DownloadDir, activeStems(m.registry.List()))
	if err != nil {
		m.logger.Warn("artifact reclaim failed", logging.Error(err))
		return
	}
	if len(removed) > 0 {
		m.logger.Info("reclaimed artifacts from replaced download", logging.Int("count", len(removed)))
	}
}

func parsePlatform(value string) (jobs.Platform, error) {
	if strings.TrimSpace(value) == "" {
		return "", services.Wrap(services.ErrValidation, "downloads", "submit", "platform is required", nil)
	}
	platform, ok := jobs.ParsePlatform(value)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "downloads", "submit", fmt.Sprintf("unsupported platform %q", value), nil)
	}
	return platform, nil
}

func parseFormat(value string) (jobs.Format, error) {
	if strings.TrimSpace(value) == "" {
		return "", services.Wrap(services.ErrValidation, "downloads", "submit", "format is required", nil)
	}
	format, ok := jobs.ParseFormat(value)
	if !ok {
		return "", services.Wrap(services.ErrValidation, "downloads", "submit", fmt.Sprintf("unsupported format %q", value), nil)
	}
	return format, nil
}

func outputKind(format jobs.Format) ytdlp.OutputKind {
	if format == jobs.FormatAudio {
		return ytdlp.OutputAudio
	}
	return ytdlp.OutputVideo
}

// activeStems derives the file name prefixes belonging to downloads still in
// flight so sweeps leave their partials alone. The stem drops the final
// extension because ffmpeg post-processing writes siblings under the same
// base name.
func activeStems(recs []jobs.Record) []string {
	var stems []string
	for _, rec := range recs {
		if rec.Terminal() || rec.WorkingName == "" {
			continue
		}
		stems = append(stems, strings.TrimSuffix(rec.WorkingName, filepath.Ext(rec.WorkingName)))
	}
	return stems
}
