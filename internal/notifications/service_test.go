package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reel/internal/notifications"
	"reel/internal/testsupport"
)

type capturedRequest struct {
	method   string
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		captured = append(captured, capturedRequest{
			method:   r.Method,
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &captured
}

func TestNewServiceWithoutTopicIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := notifications.NewService(cfg)
	if err := svc.NotifyDownloadCompleted(context.Background(), "Title", "file.mp4"); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop test notification returned error: %v", err)
	}
}

func TestNotifyDownloadCompletedPostsToTopic(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	svc := notifications.NewService(cfg)

	if err := svc.NotifyDownloadCompleted(context.Background(), "Sample Video", "Sample_Video.mp4"); err != nil {
		t.Fatalf("NotifyDownloadCompleted returned error: %v", err)
	}

	if len(*captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*captured))
	}
	req := (*captured)[0]
	if req.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", req.method)
	}
	if req.title != "Reel - Download Complete" {
		t.Fatalf("unexpected Title header %q", req.title)
	}
	if !strings.Contains(req.tags, "completed") {
		t.Fatalf("expected completed tag, got %q", req.tags)
	}
	if !strings.Contains(req.body, "Sample Video") || !strings.Contains(req.body, "Sample_Video.mp4") {
		t.Fatalf("unexpected body %q", req.body)
	}
}

func TestNotifyDownloadFailedUsesHighPriority(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	svc := notifications.NewService(cfg)

	if err := svc.NotifyDownloadFailed(context.Background(), "https://youtu.be/abc", "network unreachable"); err != nil {
		t.Fatalf("NotifyDownloadFailed returned error: %v", err)
	}

	if len(*captured) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*captured))
	}
	req := (*captured)[0]
	if req.priority != "high" {
		t.Fatalf("expected high priority, got %q", req.priority)
	}
	if !strings.Contains(req.body, "network unreachable") {
		t.Fatalf("expected failure reason in body, got %q", req.body)
	}
}

func TestEventTogglesSuppressSends(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.Completed = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(cfg)

	if err := svc.NotifyDownloadCompleted(context.Background(), "Title", "f.mp4"); err != nil {
		t.Fatalf("suppressed completed event returned error: %v", err)
	}
	if err := svc.NotifyDownloadFailed(context.Background(), "url", "reason"); err != nil {
		t.Fatalf("suppressed failure event returned error: %v", err)
	}
	if len(*captured) != 0 {
		t.Fatalf("expected no requests, got %d", len(*captured))
	}
}

func TestSendSurfacesServerError(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusInternalServerError)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	svc := notifications.NewService(cfg)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected status in error, got: %v", err)
	}
}
