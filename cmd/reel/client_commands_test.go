package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"reel/internal/api"
)

// newStubDaemon serves canned API responses keyed by method and path.
func newStubDaemon(t *testing.T, handlers map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range handlers {
		mux.HandleFunc(pattern, handler)
	}
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func respondJSON(t *testing.T, w http.ResponseWriter, status int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode stub response: %v", err)
	}
}

func TestSubmitCommand(t *testing.T) {
	ts := newStubDaemon(t, map[string]http.HandlerFunc{
		"/api/download": func(w http.ResponseWriter, r *http.Request) {
			var req api.DownloadRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode submit body: %v", err)
			}
			if req.Platform != "youtube" || req.Format != "mp3" {
				t.Errorf("unexpected request %+v", req)
			}
			respondJSON(t, w, http.StatusOK, api.DownloadResponse{Status: "started", DownloadID: "job-1"})
		},
	})

	out, err := runCLI(t, "--server", ts.URL, "submit", "--format", "mp3", "https://youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	requireContains(t, out, "Download started (id job-1)")
}

func TestSubmitCommandJoinsRunningDownload(t *testing.T) {
	ts := newStubDaemon(t, map[string]http.HandlerFunc{
		"/api/download": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, http.StatusOK, api.DownloadResponse{
				Status:     "in_progress",
				DownloadID: "job-1",
				Message:    "Download already in progress",
			})
		},
	})

	out, err := runCLI(t, "--server", ts.URL, "submit", "https://youtube.com/watch?v=abc")
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	requireContains(t, out, "Already downloading (id job-1)")
}

func TestProgressCommandSurfacesDaemonError(t *testing.T) {
	ts := newStubDaemon(t, map[string]http.HandlerFunc{
		"/api/progress/": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, http.StatusNotFound, api.ErrorResponse{Status: "error", Message: "no download with id gone"})
		},
	})

	_, err := runCLI(t, "--server", ts.URL, "progress", "gone")
	if err == nil {
		t.Fatal("expected an error for an unknown id")
	}
	requireContains(t, err.Error(), "no download with id gone")
}

func TestProgressCommandPrintsState(t *testing.T) {
	filename := "Some_Title.mp4"
	ts := newStubDaemon(t, map[string]http.HandlerFunc{
		"/api/progress/": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, http.StatusOK, api.ProgressResponse{
				Status:   "completed",
				Progress: 100,
				Filename: &filename,
			})
		},
	})

	out, err := runCLI(t, "--server", ts.URL, "progress", "job-1")
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	requireContains(t, out, "completed")
	requireContains(t, out, "Some_Title.mp4")
}

func TestJobsCommandRendersTable(t *testing.T) {
	ts := newStubDaemon(t, map[string]http.HandlerFunc{
		"/api/jobs": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, http.StatusOK, api.JobsResponse{Jobs: []api.Job{
				{
					ID:       "0b1d2f3a-aaaa-bbbb-cccc-ddddeeeeffff",
					URL:      "https://youtube.com/watch?v=abc",
					Platform: "youtube",
					Format:   "mp4",
					Status:   "downloading",
					Progress: 42,
				},
			}})
		},
	})

	out, err := runCLI(t, "--server", ts.URL, "jobs")
	if err != nil {
		t.Fatalf("jobs failed: %v", err)
	}
	requireContains(t, out, "0b1d2f3a")
	requireContains(t, out, "youtube")
	requireContains(t, out, "42%")
}

func TestJobsCommandJSONOutput(t *testing.T) {
	ts := newStubDaemon(t, map[string]http.HandlerFunc{
		"/api/jobs": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, http.StatusOK, api.JobsResponse{Jobs: []api.Job{
				{
					ID:       "0b1d2f3a-aaaa-bbbb-cccc-ddddeeeeffff",
					URL:      "https://youtube.com/watch?v=abc",
					Platform: "youtube",
					Format:   "mp4",
					Status:   "downloading",
					Progress: 42,
				},
			}})
		},
	})

	out, err := runCLI(t, "--server", ts.URL, "jobs", "--json")
	if err != nil {
		t.Fatalf("jobs --json failed: %v", err)
	}
	var listing api.JobsResponse
	if err := json.Unmarshal([]byte(out), &listing); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, out)
	}
	if len(listing.Jobs) != 1 || listing.Jobs[0].ID != "0b1d2f3a-aaaa-bbbb-cccc-ddddeeeeffff" {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestJobsCommandEmptyListing(t *testing.T) {
	ts := newStubDaemon(t, map[string]http.HandlerFunc{
		"/api/jobs": func(w http.ResponseWriter, r *http.Request) {
			respondJSON(t, w, http.StatusOK, api.JobsResponse{})
		},
	})

	out, err := runCLI(t, "--server", ts.URL, "jobs")
	if err != nil {
		t.Fatalf("jobs failed: %v", err)
	}
	requireContains(t, out, "No downloads tracked")
}

func TestFetchCommandSavesAttachment(t *testing.T) {
	ts := newStubDaemon(t, map[string]http.HandlerFunc{
		"/api/download/": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Disposition", `attachment; filename="Some_Title.mp4"`)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("video-bytes"))
		},
	})

	dest := t.TempDir()
	out, err := runCLI(t, "--server", ts.URL, "fetch", "--output", dest, "job-1")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	requireContains(t, out, "Saved")

	data, err := os.ReadFile(filepath.Join(dest, "Some_Title.mp4"))
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Fatalf("unexpected file contents %q", data)
	}
}
