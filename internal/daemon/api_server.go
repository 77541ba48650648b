package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"reel/internal/api"
	"reel/internal/config"
	"reel/internal/downloads"
	"reel/internal/fileutil"
	"reel/internal/jobs"
	"reel/internal/logging"
	"reel/internal/services"
)

// maxRequestBody bounds JSON request bodies on the POST endpoints.
const maxRequestBody = 16 << 20

type apiServer struct {
	bind        string
	origins     []string
	downloadDir string
	logger      *slog.Logger
	manager     *downloads.Manager

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, manager *downloads.Manager, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:        strings.TrimSpace(cfg.Server.Bind),
		origins:     cfg.Server.AllowedOrigins,
		downloadDir: cfg.Paths.DownloadDir,
		logger:      logging.WithComponent(logger, "api-server"),
		manager:     manager,
	}

	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// File fetches stream whole downloads, so the write budget is
		// generous rather than request-sized.
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/download/", s.handleDownloadFile)
	mux.HandleFunc("/api/video-info", s.handleVideoInfo)
	mux.HandleFunc("/api/progress/", s.handleProgress)
	mux.HandleFunc("/api/jobs", s.handleJobs)
	return s.withCORS(s.withRequestID(mux))
}

// withRequestID tags every request with a correlation identifier so log
// lines from one request can be tied together.
func (s *apiServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.bind, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// withCORS answers browser preflights and echoes allowed origins. Requests
// from unlisted origins still run; they just receive no CORS headers, which
// is the browser-enforced deny.
func (s *apiServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			header := w.Header()
			header.Set("Access-Control-Allow-Origin", origin)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			header.Set("Access-Control-Allow-Headers", "Content-Type")
			header.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) originAllowed(origin string) bool {
	origin = strings.TrimRight(origin, "/")
	for _, allowed := range s.origins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	free, err := fileutil.DiskFree(s.downloadDir)
	if err != nil {
		s.logger.Warn("disk stats unavailable", logging.Error(err))
	}
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:        "ok",
		Timestamp:     float64(time.Now().UnixMilli()) / 1000,
		TempDir:       s.downloadDir,
		ActiveJobs:    s.manager.ActiveCount(),
		DiskFreeBytes: free,
	})
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.DownloadRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	submission, err := s.manager.Submit(req.URL, req.Platform, req.Format)
	if err != nil {
		s.writeError(r, w, err)
		return
	}

	resp := api.DownloadResponse{
		Status:     "started",
		DownloadID: submission.Record.ID,
	}
	if submission.Existing {
		resp.Status = "in_progress"
		resp.Message = "Download already in progress"
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleVideoInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req api.VideoInfoRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	info, err := s.manager.VideoInfo(r.Context(), req.URL, req.Platform)
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	platform, _ := jobs.ParsePlatform(req.Platform)
	s.writeJSON(w, http.StatusOK, api.VideoInfoResponse{
		Status: "success",
		Data:   api.InfoData(platform, info),
	})
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/progress/")
	if id == "" || strings.Contains(id, "/") {
		s.writeMessage(w, http.StatusNotFound, "download not found")
		return
	}
	rec, err := s.manager.Progress(id)
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ProgressFromRecord(rec))
}

func (s *apiServer) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/download/")
	id, ok := strings.CutSuffix(rest, "/file")
	if !ok || id == "" || strings.Contains(id, "/") {
		s.writeMessage(w, http.StatusNotFound, "download not found")
		return
	}

	path, rec, err := s.manager.File(id)
	if err != nil {
		s.writeError(r, w, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rec.Filename))
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobsResponse{Jobs: api.JobsFromRecords(s.manager.Jobs())})
}

// decodeBody parses a JSON request body into dst, answering the request
// itself when the body is missing or malformed.
func (s *apiServer) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		s.writeMessage(w, http.StatusBadRequest, "request body must be valid JSON")
		return false
	}
	return true
}

func (s *apiServer) writeError(r *http.Request, w http.ResponseWriter, err error) {
	status := services.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error("request failed", logging.Error(err))
	}
	s.writeMessage(w, status, err.Error())
}

func (s *apiServer) writeMessage(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Status: "error", Message: message})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}
