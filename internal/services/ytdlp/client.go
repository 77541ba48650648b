// Package ytdlp shells out to the yt-dlp command line tool for media
// downloads and metadata extraction.
package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"reel/internal/fileutil"
	"reel/internal/textutil"
)

// OutputKind selects the artifact a download produces.
type OutputKind string

const (
	// OutputAudio extracts the best audio stream and transcodes it to MP3.
	OutputAudio OutputKind = "audio"
	// OutputVideo downloads the best available single-file rendition.
	OutputVideo OutputKind = "video"
)

// Request describes a single download invocation.
type Request struct {
	URL                  string
	Kind                 OutputKind
	OutputDir            string
	Retries              int
	SocketTimeoutSeconds int
	FFmpegLocation       string
}

// Info carries the metadata fields surfaced by the video-info endpoint.
type Info struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Duration     float64 `json:"duration"`
	ViewCount    int64   `json:"view_count"`
	LikeCount    int64   `json:"like_count"`
	RepostCount  int64   `json:"repost_count"`
	CommentCount int64   `json:"comment_count"`
	Thumbnail    string  `json:"thumbnail"`
	Channel      string  `json:"channel"`
	Uploader     string  `json:"uploader"`
	Description  string  `json:"description"`
	UploadDate   string  `json:"upload_date"`
	Extractor    string  `json:"extractor"`
	WebpageURL   string  `json:"webpage_url"`
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary      string
	infoTimeout time.Duration
	exec        Executor
}

// New constructs a yt-dlp client. infoTimeoutSeconds bounds metadata
// extraction only; downloads run until they finish or their context is
// cancelled.
func New(binary string, infoTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:      binary,
		infoTimeout: time.Duration(infoTimeoutSeconds) * time.Second,
		exec:        commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Download runs yt-dlp for req and returns the finished file path. Progress
// callbacks fire on yt-dlp's own cadence.
func (c *Client) Download(ctx context.Context, req Request, progress func(ProgressUpdate)) (string, error) {
	if strings.TrimSpace(req.URL) == "" {
		return "", errors.New("url required")
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return "", errors.New("output directory required")
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	var (
		reportedPath  string
		reportedTitle string
		tail          errorTail
	)
	onLine := func(line string) {
		if update, ok := parseProgress(line); ok {
			if progress != nil {
				progress(update)
			}
			return
		}
		if path, title, ok := parseOutput(line); ok {
			reportedPath = path
			reportedTitle = title
			return
		}
		tail.observe(line)
	}

	if err := c.exec.Run(ctx, c.binary, downloadArgs(req), onLine); err != nil {
		return "", tail.wrap("download", err)
	}
	return resolveOutput(req, reportedPath, reportedTitle)
}

// ExtractInfo fetches metadata for url without downloading media.
func (c *Client) ExtractInfo(ctx context.Context, url string) (*Info, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("url required")
	}
	infoCtx := ctx
	if c.infoTimeout > 0 {
		var cancel context.CancelFunc
		infoCtx, cancel = context.WithTimeout(ctx, c.infoTimeout)
		defer cancel()
	}

	args := []string{"--dump-json", "--no-warnings", "--no-playlist", "--skip-download", url}

	var (
		payload []byte
		tail    errorTail
	)
	onLine := func(line string) {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			payload = []byte(trimmed)
			return
		}
		tail.observe(line)
	}

	if err := c.exec.Run(infoCtx, c.binary, args, onLine); err != nil {
		return nil, tail.wrap("extract info", err)
	}
	if len(payload) == 0 {
		return nil, errors.New("yt-dlp returned no metadata")
	}

	var info Info
	if err := json.Unmarshal(payload, &info); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return &info, nil
}

func downloadArgs(req Request) []string {
	args := []string{
		"--newline",
		"--progress",
		"--no-warnings",
		"--no-playlist",
		"--restrict-filenames",
		"--progress-template", progressTemplate,
		"--print", outputTemplate,
	}
	if req.Retries > 0 {
		args = append(args, "--retries", strconv.Itoa(req.Retries))
	}
	if req.SocketTimeoutSeconds > 0 {
		args = append(args, "--socket-timeout", strconv.Itoa(req.SocketTimeoutSeconds))
	}
	if req.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", req.FFmpegLocation)
	}
	if req.Kind == OutputAudio {
		args = append(args, "-f", "bestaudio/best", "-x", "--audio-format", "mp3", "--audio-quality", "192K")
	} else {
		args = append(args, "-f", "best")
	}
	args = append(args, "-o", filepath.Join(req.OutputDir, "%(title)s.%(ext)s"))
	args = append(args, req.URL)
	return args
}

// resolveOutput locates the finished file, preferring the path yt-dlp
// reported, and renames it to the sanitized source title when one is known.
func resolveOutput(req Request, reported, title string) (string, error) {
	path := strings.TrimSpace(reported)
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path == "" {
		newest, err := newestOutput(req.OutputDir, req.Kind)
		if err != nil {
			return "", fmt.Errorf("inspect download outputs: %w", err)
		}
		path = newest
	}
	if path == "" {
		return "", fmt.Errorf("yt-dlp produced no output file in %s", req.OutputDir)
	}

	if strings.TrimSpace(title) == "" {
		return path, nil
	}
	target := filepath.Join(req.OutputDir, textutil.SanitizeFileName(title)+filepath.Ext(path))
	if target == path {
		return path, nil
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("remove stale output: %w", err)
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("rename output: %w", err)
	}
	return target, nil
}

func newestOutput(dir string, kind OutputKind) (string, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	var (
		newest    string
		newestMod time.Time
	)
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		name := item.Name()
		if fileutil.IsTransient(name) {
			continue
		}
		if !matchesKind(name, kind) {
			continue
		}
		info, err := item.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestMod) {
			newest = filepath.Join(dir, name)
			newestMod = info.ModTime()
		}
	}
	return newest, nil
}

func matchesKind(name string, kind OutputKind) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if kind == OutputAudio {
		return ext == ".mp3"
	}
	switch ext {
	case ".mp4", ".webm", ".mkv", ".mov":
		return true
	}
	return false
}

// maxErrorLines caps how much stderr detail rides along on a failure.
const maxErrorLines = 5

// errorTail retains the most recent yt-dlp error lines so failures surface
// the tool's own explanation.
type errorTail struct {
	lines []string
}

func (t *errorTail) observe(line string) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "ERROR:") {
		return
	}
	t.lines = append(t.lines, trimmed)
	if len(t.lines) > maxErrorLines {
		t.lines = t.lines[len(t.lines)-maxErrorLines:]
	}
}

func (t *errorTail) wrap(operation string, err error) error {
	if len(t.lines) > 0 {
		return fmt.Errorf("yt-dlp %s: %s: %w", operation, strings.Join(t.lines, "; "), err)
	}
	return fmt.Errorf("yt-dlp %s: %w", operation, err)
}
