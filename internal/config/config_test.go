package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/config"
)

func TestLoadDefaultsWhenFileAbsent(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if cfg.Server.Bind != "0.0.0.0:3002" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	wantLogs := filepath.Join(tempHome, ".local", "share", "reel", "logs")
	if cfg.Paths.LogDir != wantLogs {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, wantLogs)
	}
	if cfg.Downloads.MaxConcurrent != 5 {
		t.Fatalf("unexpected max concurrent: %d", cfg.Downloads.MaxConcurrent)
	}
	if cfg.Downloads.StallTimeout != 30 || cfg.Downloads.DownloadTimeout != 300 {
		t.Fatalf("unexpected timeouts: %+v", cfg.Downloads)
	}
	if cfg.Downloads.CleanupGrace != 30 || cfg.Downloads.ReapInterval != 10 {
		t.Fatalf("unexpected reaper timings: %+v", cfg.Downloads)
	}
	if !cfg.InfoCache.Enabled || cfg.InfoCache.TTLMinutes != 15 {
		t.Fatalf("unexpected info cache defaults: %+v", cfg.InfoCache)
	}
	if cfg.YtdlpBinary() != "yt-dlp" || cfg.FFmpegBinary() != "ffmpeg" {
		t.Fatalf("unexpected tool defaults: %q %q", cfg.YtdlpBinary(), cfg.FFmpegBinary())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DownloadDir, cfg.Paths.LogDir, cfg.Paths.StateDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadParsesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reel.toml")
	body := strings.Join([]string{
		`[server]`,
		`bind = "127.0.0.1:9090"`,
		`allowed_origins = ["https://reel.example.com/"]`,
		``,
		`[paths]`,
		`download_dir = "` + filepath.Join(dir, "dl") + `"`,
		``,
		`[downloads]`,
		`max_concurrent = 2`,
		`retries = 1`,
		``,
		`[tools]`,
		`ytdlp_path = "/opt/yt-dlp"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: %q %v", resolved, exists)
	}
	if cfg.Server.Bind != "127.0.0.1:9090" {
		t.Fatalf("unexpected bind: %q", cfg.Server.Bind)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://reel.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Downloads.MaxConcurrent != 2 || cfg.Downloads.Retries != 1 {
		t.Fatalf("unexpected downloads: %+v", cfg.Downloads)
	}
	// Unset sections keep their defaults.
	if cfg.Downloads.StallTimeout != 30 {
		t.Fatalf("expected default stall timeout, got %d", cfg.Downloads.StallTimeout)
	}
	if cfg.YtdlpBinary() != "/opt/yt-dlp" {
		t.Fatalf("unexpected ytdlp binary: %q", cfg.YtdlpBinary())
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"bad bind", "[server]\nbind = \"nonsense\"\n", "server.bind"},
		{"zero cap", "[downloads]\nmax_concurrent = 0\n", "max_concurrent"},
		{"negative retries", "[downloads]\nretries = -1\n", "retries"},
		{"stall above timeout", "[downloads]\nstall_timeout = 400\n", "stall_timeout"},
		{"bad format", "[logging]\nformat = \"yaml\"\n", "logging.format"},
		{"bad level", "[logging]\nlevel = \"loud\"\n", "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reel.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in error %q", tc.want, err)
			}
		})
	}
}

func TestNtfyTopicFromEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("REEL_NTFY_TOPIC", "reel-downloads")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "reel-downloads" {
		t.Fatalf("expected topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Downloads.MaxConcurrent != 5 {
		t.Fatalf("sample should carry defaults, got %+v", cfg.Downloads)
	}
}
