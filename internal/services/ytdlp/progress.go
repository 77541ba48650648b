package ytdlp

import (
	"path/filepath"
	"strconv"
	"strings"
)

// Progress lines carry pipe-separated fields: status, downloaded bytes,
// total bytes, total bytes estimate, speed, eta, filename. yt-dlp renders
// fields it cannot fill as NA. The output line reports where the finished
// file landed after any post-processing move, plus the source title.
const (
	progressPrefix   = "REELPRG|"
	progressTemplate = "download:" + progressPrefix +
		"%(progress.status)s|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|" +
		"%(progress.total_bytes_estimate)s|%(progress.speed)s|%(progress.eta)s|%(progress.filename)s"

	outputPrefix   = "REELOUT|"
	outputTemplate = "after_move:" + outputPrefix + "%(filepath)s|%(title)s"
)

// ProgressUpdate captures one yt-dlp progress report.
type ProgressUpdate struct {
	Status          string
	Percent         float64
	DownloadedBytes int64
	TotalBytes      int64
	Speed           float64
	ETASeconds      int
	Filename        string
}

func parseProgress(line string) (ProgressUpdate, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, progressPrefix) {
		return ProgressUpdate{}, false
	}
	parts := strings.Split(strings.TrimPrefix(line, progressPrefix), "|")
	if len(parts) < 6 {
		return ProgressUpdate{}, false
	}

	update := ProgressUpdate{
		Status:          strings.TrimSpace(parts[0]),
		DownloadedBytes: parseCount(parts[1]),
		TotalBytes:      parseCount(parts[2]),
		Speed:           parseNumber(parts[4]),
		ETASeconds:      int(parseCount(parts[5])),
	}
	if len(parts) > 6 {
		name := strings.TrimSpace(strings.Join(parts[6:], "|"))
		if name != "" && name != "NA" {
			update.Filename = filepath.Base(name)
		}
	}

	total := update.TotalBytes
	if total <= 0 {
		total = parseCount(parts[3])
	}
	if total > 0 && update.DownloadedBytes > 0 {
		update.Percent = float64(update.DownloadedBytes) / float64(total) * 100
	}
	if update.Percent > 100 {
		update.Percent = 100
	}
	if update.Status == "finished" {
		update.Percent = 100
	}
	return update, true
}

func parseOutput(line string) (path, title string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, outputPrefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(line, outputPrefix), "|", 2)
	path = strings.TrimSpace(parts[0])
	if path == "" {
		return "", "", false
	}
	if len(parts) > 1 {
		title = strings.TrimSpace(parts[1])
		if title == "NA" {
			title = ""
		}
	}
	return path, title, true
}

// parseCount reads an integer field, tolerating the float renderings and NA
// placeholders yt-dlp substitutes for missing values.
func parseCount(s string) int64 {
	v := parseNumber(s)
	if v <= 0 {
		return 0
	}
	return int64(v)
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" || s == "None" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
