package ffmpeg_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reel/internal/services/ffmpeg"
)

func writeStub(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return path
}

func TestLocatePrefersOverride(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "custom-ffmpeg", "#!/bin/sh\nexit 0\n")

	resolved, err := ffmpeg.Locate(stub)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if resolved != stub {
		t.Fatalf("expected override path %q, got %q", stub, resolved)
	}
}

func TestLocateMissingOverrideFails(t *testing.T) {
	if _, err := ffmpeg.Locate(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatal("expected error for missing override")
	}
}

func TestLocateSearchesPath(t *testing.T) {
	dir := t.TempDir()
	writeStub(t, dir, "ffmpeg", "#!/bin/sh\nexit 0\n")
	t.Setenv("PATH", dir)

	resolved, err := ffmpeg.Locate("")
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if filepath.Dir(resolved) != dir {
		t.Fatalf("expected resolution from stub dir, got %q", resolved)
	}
}

func TestVersionReadsFirstLine(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "ffmpeg", "#!/bin/sh\necho 'ffmpeg version 6.1.1 Copyright (c) 2000-2023'\necho 'built with gcc'\n")

	version, err := ffmpeg.Version(context.Background(), stub)
	if err != nil {
		t.Fatalf("Version returned error: %v", err)
	}
	if !strings.HasPrefix(version, "ffmpeg version 6.1.1") {
		t.Fatalf("unexpected version line %q", version)
	}
	if strings.Contains(version, "built with") {
		t.Fatalf("expected first line only, got %q", version)
	}
}

func TestVersionSurfacesFailure(t *testing.T) {
	dir := t.TempDir()
	stub := writeStub(t, dir, "ffmpeg", "#!/bin/sh\necho 'no such device' >&2\nexit 1\n")

	if _, err := ffmpeg.Version(context.Background(), stub); err == nil {
		t.Fatal("expected error from failing binary")
	} else if !strings.Contains(err.Error(), "no such device") {
		t.Fatalf("expected stderr detail, got: %v", err)
	}
}
