package api

import "time"

// DownloadRequest is the body of POST /api/download.
type DownloadRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
	Format   string `json:"format"`
}

// DownloadResponse acknowledges a submission. Status is "started" for a
// fresh job and "in_progress" when the URL was already being downloaded.
type DownloadResponse struct {
	Status     string `json:"status"`
	DownloadID string `json:"download_id"`
	Message    string `json:"message,omitempty"`
}

// VideoInfoRequest is the body of POST /api/video-info.
type VideoInfoRequest struct {
	URL      string `json:"url"`
	Platform string `json:"platform"`
}

// VideoInfo is the metadata payload under the video-info success envelope.
// The engagement counters are populated for TikTok only.
type VideoInfo struct {
	Title        string  `json:"title"`
	Duration     float64 `json:"duration"`
	ViewCount    int64   `json:"view_count"`
	Thumbnail    string  `json:"thumbnail"`
	Channel      string  `json:"channel"`
	Description  string  `json:"description"`
	UploadDate   string  `json:"upload_date"`
	Platform     string  `json:"platform"`
	LikeCount    *int64  `json:"like_count,omitempty"`
	RepostCount  *int64  `json:"repost_count,omitempty"`
	CommentCount *int64  `json:"comment_count,omitempty"`
}

// VideoInfoResponse wraps metadata in the success envelope.
type VideoInfoResponse struct {
	Status string    `json:"status"`
	Data   VideoInfo `json:"data"`
}

// ProgressResponse reports the lifecycle state of one download. Filename and
// Error serialize as null until the job reaches the matching terminal state.
type ProgressResponse struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	Filename *string `json:"filename"`
	Error    *string `json:"error"`
}

// HealthResponse reports daemon liveness. Timestamp is unix seconds.
type HealthResponse struct {
	Status        string  `json:"status"`
	Timestamp     float64 `json:"timestamp"`
	TempDir       string  `json:"temp_dir"`
	ActiveJobs    int     `json:"active_jobs"`
	DiskFreeBytes uint64  `json:"disk_free_bytes"`
}

// Job is one row of the jobs listing.
type Job struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	Platform        string    `json:"platform"`
	Format          string    `json:"format"`
	Status          string    `json:"status"`
	Progress        float64   `json:"progress"`
	Filename        string    `json:"filename,omitempty"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	DownloadedBytes int64     `json:"downloaded_bytes"`
	TotalBytes      int64     `json:"total_bytes"`
	Speed           float64   `json:"speed"`
	ETASeconds      int64     `json:"eta_seconds"`
}

// JobsResponse lists every registered job.
type JobsResponse struct {
	Jobs []Job `json:"jobs"`
}

// ErrorResponse is the uniform error envelope for non-2xx answers.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
