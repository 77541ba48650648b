package api

import (
	"reel/internal/jobs"
	"reel/internal/services/ytdlp"
)

// ProgressFromRecord shapes a registry record into the polling payload.
func ProgressFromRecord(rec jobs.Record) ProgressResponse {
	resp := ProgressResponse{
		Status:   string(rec.State()),
		Progress: rec.Progress,
	}
	if rec.Filename != "" {
		name := rec.Filename
		resp.Filename = &name
	}
	if rec.ErrorMessage != "" {
		message := rec.ErrorMessage
		resp.Error = &message
	}
	return resp
}

// JobFromRecord shapes a registry record into a jobs listing row.
func JobFromRecord(rec jobs.Record) Job {
	return Job{
		ID:              rec.ID,
		URL:             rec.SourceURL,
		Platform:        string(rec.Platform),
		Format:          string(rec.Format),
		Status:          string(rec.State()),
		Progress:        rec.Progress,
		Filename:        rec.Filename,
		Error:           rec.ErrorMessage,
		StartedAt:       rec.StartedAt,
		UpdatedAt:       rec.UpdatedAt,
		DownloadedBytes: rec.DownloadedBytes,
		TotalBytes:      rec.TotalBytes,
		Speed:           rec.Speed,
		ETASeconds:      rec.ETASeconds,
	}
}

// JobsFromRecords converts a registry snapshot, preserving its order.
func JobsFromRecords(recs []jobs.Record) []Job {
	out := make([]Job, 0, len(recs))
	for _, rec := range recs {
		out = append(out, JobFromRecord(rec))
	}
	return out
}

// InfoData maps extractor metadata onto the platform-shaped payload clients
// expect. TikTok responses carry engagement counters and a placeholder title
// when the extractor reports none.
func InfoData(platform jobs.Platform, info *ytdlp.Info) VideoInfo {
	data := VideoInfo{
		Title:       info.Title,
		Duration:    info.Duration,
		ViewCount:   info.ViewCount,
		Thumbnail:   info.Thumbnail,
		Channel:     info.Channel,
		Description: info.Description,
		UploadDate:  info.UploadDate,
		Platform:    string(platform),
	}
	if data.Channel == "" {
		data.Channel = info.Uploader
	}
	if platform == jobs.PlatformTikTok {
		if data.Title == "" {
			data.Title = "TikTok Video"
		}
		like, repost, comment := info.LikeCount, info.RepostCount, info.CommentCount
		data.LikeCount = &like
		data.RepostCount = &repost
		data.CommentCount = &comment
	}
	return data
}
