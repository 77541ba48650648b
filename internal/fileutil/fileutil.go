package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// transientMarkers match the intermediate artifacts yt-dlp and ffmpeg leave
// behind while a transfer or transcode is underway.
var transientMarkers = []string{".part", ".temp"}

// IsTransient reports whether a file name looks like a partial or temporary
// download artifact. Markers are matched as path-name segments
// ("clip.mp4.part", "clip.mp4.part-Frag0003", "clip.temp.mp3") so titles that
// merely contain the words are left alone.
func IsTransient(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range transientMarkers {
		if strings.HasSuffix(lower, m) {
			return true
		}
		if strings.Contains(lower, m+".") || strings.Contains(lower, m+"-") {
			return true
		}
	}
	return false
}

// PurgeTransient removes partial and temporary artifacts from dir, leaving
// finished results untouched. Transients whose names start with one of the
// keep prefixes belong to downloads still underway and are skipped. It
// returns the names it removed. A missing directory is not an error.
func PurgeTransient(dir string, keep []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read download directory: %w", err)
	}

	var removed []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !IsTransient(name) || keepName(name, keep) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("remove %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}

func keepName(name string, keep []string) bool {
	for _, prefix := range keep {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// DiskFree returns the number of bytes available to unprivileged processes on
// the filesystem holding path.
func DiskFree(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// EnsureWritable verifies the process can read, write, and traverse path.
func EnsureWritable(path string) error {
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("access %s: %w", path, err)
	}
	return nil
}
