package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reel/internal/services/ytdlp"
)

type stubExecutor struct {
	lines []string
	err   error
	calls int
	args  [][]string
}

func (s *stubExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	s.calls++
	cloned := append([]string(nil), args...)
	s.args = append(s.args, cloned)
	for _, line := range s.lines {
		onStdout(line)
	}
	return s.err
}

// fileCreatingExecutor writes a finished download into the output directory
// and then replays its canned lines, standing in for a real yt-dlp run.
type fileCreatingExecutor struct {
	fileName string
	lines    []string
	args     [][]string
}

func (f *fileCreatingExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cloned := append([]string(nil), args...)
	f.args = append(f.args, cloned)
	dir := outputDirFromArgs(args)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, f.fileName)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		return err
	}
	for _, line := range f.lines {
		onStdout(strings.ReplaceAll(line, "{path}", path))
	}
	return nil
}

func outputDirFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			return filepath.Dir(args[i+1])
		}
	}
	return ""
}

func TestDownloadRenamesToSanitizedTitle(t *testing.T) {
	dir := t.TempDir()
	exec := &fileCreatingExecutor{
		fileName: "Sample_Video.mp3",
		lines: []string{
			"REELPRG|downloading|512|1024|NA|2048.5|7|Sample_Video.mp3",
			"REELPRG|finished|1024|1024|NA|NA|NA|Sample_Video.mp3",
			"REELOUT|{path}|Sample: Video",
		},
	}
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	var updates []ytdlp.ProgressUpdate
	path, err := client.Download(context.Background(), ytdlp.Request{
		URL:       "https://www.youtube.com/watch?v=abc",
		Kind:      ytdlp.OutputAudio,
		OutputDir: dir,
	}, func(u ytdlp.ProgressUpdate) {
		updates = append(updates, u)
	})
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Base(path) != "Sample_ Video.mp3" {
		t.Fatalf("expected sanitized rename, got %q", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected renamed output on disk: %v", err)
	}
	if len(updates) != 2 {
		t.Fatalf("expected 2 progress updates, got %d", len(updates))
	}
	if updates[0].Percent != 50 {
		t.Fatalf("expected 50%% from byte counts, got %.1f", updates[0].Percent)
	}
	if updates[1].Status != "finished" || updates[1].Percent != 100 {
		t.Fatalf("expected finished update at 100%%, got %+v", updates[1])
	}
}

func TestDownloadAudioArgs(t *testing.T) {
	dir := t.TempDir()
	exec := &fileCreatingExecutor{fileName: "clip.mp3"}
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Download(context.Background(), ytdlp.Request{
		URL:                  "https://youtu.be/abc",
		Kind:                 ytdlp.OutputAudio,
		OutputDir:            dir,
		Retries:              3,
		SocketTimeoutSeconds: 30,
		FFmpegLocation:       "/usr/bin/ffmpeg",
	}, nil)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if len(exec.args) != 1 {
		t.Fatalf("expected one invocation, got %d", len(exec.args))
	}
	args := exec.args[0]
	for _, want := range []string{"--newline", "--restrict-filenames", "--no-playlist", "-x", "--audio-format", "mp3", "--audio-quality", "192K", "--ffmpeg-location"} {
		if !containsArg(args, want) {
			t.Fatalf("expected %q in args, got %v", want, args)
		}
	}
	if !containsPair(args, "--retries", "3") {
		t.Fatalf("expected --retries 3, got %v", args)
	}
	if !containsPair(args, "--socket-timeout", "30") {
		t.Fatalf("expected --socket-timeout 30, got %v", args)
	}
	if args[len(args)-1] != "https://youtu.be/abc" {
		t.Fatalf("expected url as final arg, got %v", args)
	}
}

func TestDownloadVideoSelectsBestFormat(t *testing.T) {
	dir := t.TempDir()
	exec := &fileCreatingExecutor{fileName: "clip.mp4"}
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Download(context.Background(), ytdlp.Request{
		URL:       "https://www.tiktok.com/@user/video/123",
		Kind:      ytdlp.OutputVideo,
		OutputDir: dir,
	}, nil)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	args := exec.args[0]
	if !containsPair(args, "-f", "best") {
		t.Fatalf("expected -f best for video, got %v", args)
	}
	if containsArg(args, "-x") {
		t.Fatalf("did not expect audio extraction for video, got %v", args)
	}
}

func TestDownloadFallsBackToNewestOutput(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "older.mp4")
	if err := os.WriteFile(older, []byte("old"), 0o644); err != nil {
		t.Fatalf("write older: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	exec := &fileCreatingExecutor{fileName: "newer.mp4"}
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	path, err := client.Download(context.Background(), ytdlp.Request{
		URL:       "https://www.youtube.com/watch?v=abc",
		Kind:      ytdlp.OutputVideo,
		OutputDir: dir,
	}, nil)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Base(path) != "newer.mp4" {
		t.Fatalf("expected newest output, got %q", filepath.Base(path))
	}
}

func TestDownloadIgnoresTransientsInFallback(t *testing.T) {
	dir := t.TempDir()
	exec := &fileCreatingExecutor{fileName: "result.mp3"}
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	partial := filepath.Join(dir, "result.mp3.part")
	if err := os.WriteFile(partial, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write partial: %v", err)
	}

	path, err := client.Download(context.Background(), ytdlp.Request{
		URL:       "https://youtu.be/abc",
		Kind:      ytdlp.OutputAudio,
		OutputDir: dir,
	}, nil)
	if err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	if filepath.Base(path) != "result.mp3" {
		t.Fatalf("expected finished file, got %q", filepath.Base(path))
	}
}

func TestDownloadErrorsWhenNoOutputProduced(t *testing.T) {
	exec := &stubExecutor{lines: []string{"REELPRG|downloading|1|100|NA|NA|NA|x.mp4"}}
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Download(context.Background(), ytdlp.Request{
		URL:       "https://youtu.be/abc",
		Kind:      ytdlp.OutputVideo,
		OutputDir: t.TempDir(),
	}, nil)
	if err == nil {
		t.Fatal("expected error when no file produced")
	}
	if !strings.Contains(err.Error(), "no output file") {
		t.Fatalf("expected 'no output file' error, got: %v", err)
	}
}

func TestDownloadSurfacesErrorTail(t *testing.T) {
	exec := &stubExecutor{
		lines: []string{"ERROR: Unsupported URL: https://example.com"},
		err:   errors.New("exit status 1"),
	}
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	_, err = client.Download(context.Background(), ytdlp.Request{
		URL:       "https://example.com",
		Kind:      ytdlp.OutputVideo,
		OutputDir: t.TempDir(),
	}, nil)
	if err == nil {
		t.Fatal("expected executor failure to propagate")
	}
	if !strings.Contains(err.Error(), "Unsupported URL") {
		t.Fatalf("expected stderr detail in error, got: %v", err)
	}
}

func TestExtractInfoDecodesMetadata(t *testing.T) {
	exec := &stubExecutor{lines: []string{
		`{"id":"abc","title":"Sample Video","duration":213.5,"view_count":42000,"like_count":512,"thumbnail":"https://img.example/abc.jpg","channel":"Sample Channel","uploader":"sampler","description":"words","upload_date":"20240115","extractor":"youtube","webpage_url":"https://www.youtube.com/watch?v=abc"}`,
	}}
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	info, err := client.ExtractInfo(context.Background(), "https://www.youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("ExtractInfo returned error: %v", err)
	}
	if info.Title != "Sample Video" {
		t.Fatalf("unexpected title %q", info.Title)
	}
	if info.Duration != 213.5 {
		t.Fatalf("unexpected duration %v", info.Duration)
	}
	if info.ViewCount != 42000 {
		t.Fatalf("unexpected view count %d", info.ViewCount)
	}
	if info.UploadDate != "20240115" {
		t.Fatalf("unexpected upload date %q", info.UploadDate)
	}

	args := exec.args[0]
	for _, want := range []string{"--dump-json", "--no-warnings", "--no-playlist", "--skip-download"} {
		if !containsArg(args, want) {
			t.Fatalf("expected %q in args, got %v", want, args)
		}
	}
}

func TestExtractInfoErrorsWithoutPayload(t *testing.T) {
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(&stubExecutor{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.ExtractInfo(context.Background(), "https://youtu.be/abc"); err == nil {
		t.Fatal("expected error when yt-dlp prints no metadata")
	}
}

func TestExtractInfoSurfacesErrorTail(t *testing.T) {
	exec := &stubExecutor{
		lines: []string{"ERROR: Video unavailable"},
		err:   errors.New("exit status 1"),
	}
	client, err := ytdlp.New("yt-dlp", 30, ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.ExtractInfo(context.Background(), "https://youtu.be/gone")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Video unavailable") {
		t.Fatalf("expected tool detail in error, got: %v", err)
	}
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ytdlp.New("  ", 30); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func containsArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

func containsPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}
