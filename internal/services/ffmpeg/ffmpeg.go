// Package ffmpeg resolves and verifies the FFmpeg binary yt-dlp relies on
// for audio extraction and stream merging.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Locate resolves the FFmpeg binary to execute. An explicit override wins;
// otherwise PATH is searched.
func Locate(override string) (string, error) {
	override = strings.TrimSpace(override)
	if override != "" {
		resolved, err := exec.LookPath(override)
		if err != nil {
			return "", fmt.Errorf("ffmpeg override %q: %w", override, err)
		}
		return resolved, nil
	}
	resolved, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", errors.New("ffmpeg not found in PATH")
	}
	return resolved, nil
}

// Version runs the binary and returns the first line of its -version output.
func Version(ctx context.Context, binary string) (string, error) {
	if strings.TrimSpace(binary) == "" {
		return "", errors.New("ffmpeg binary required")
	}
	cmd := exec.CommandContext(ctx, binary, "-version") //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffmpeg -version: %w: %s", err, strings.TrimSpace(string(output)))
	}
	line := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = strings.TrimSpace(line[:idx])
	}
	if line == "" {
		return "", errors.New("ffmpeg produced no version output")
	}
	return line, nil
}
