package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Client calls a running reel daemon over its HTTP API.
type Client struct {
	baseURL string
	json    *http.Client
	stream  *http.Client
}

// NewClient builds a client for the given base URL. A bare host:port gains
// the http scheme; trailing slashes are dropped.
func NewClient(baseURL string) *Client {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = "http://127.0.0.1:3002"
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	return &Client{
		baseURL: trimmed,
		json:    &http.Client{Timeout: 30 * time.Second},
		// File fetches stream arbitrarily large bodies; the context bounds
		// them instead of a client timeout.
		stream: &http.Client{},
	}
}

// BaseURLFromBind derives a client base URL from a server bind address,
// substituting loopback for wildcard hosts.
func BaseURLFromBind(bind string) string {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return "http://127.0.0.1:3002"
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "http://" + bind
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// BaseURL reports the normalized URL the client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health fetches daemon liveness information.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.getJSON(ctx, "/api/health", &out)
	return out, err
}

// Submit requests a new download.
func (c *Client) Submit(ctx context.Context, req DownloadRequest) (DownloadResponse, error) {
	var out DownloadResponse
	err := c.postJSON(ctx, "/api/download", req, &out)
	return out, err
}

// VideoInfo fetches metadata for a URL without downloading it.
func (c *Client) VideoInfo(ctx context.Context, req VideoInfoRequest) (VideoInfo, error) {
	var out VideoInfoResponse
	if err := c.postJSON(ctx, "/api/video-info", req, &out); err != nil {
		return VideoInfo{}, err
	}
	return out.Data, nil
}

// Progress polls the state of one download.
func (c *Client) Progress(ctx context.Context, id string) (ProgressResponse, error) {
	var out ProgressResponse
	err := c.getJSON(ctx, "/api/progress/"+url.PathEscape(id), &out)
	return out, err
}

// Jobs lists every job the daemon currently tracks.
func (c *Client) Jobs(ctx context.Context) ([]Job, error) {
	var out JobsResponse
	if err := c.getJSON(ctx, "/api/jobs", &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// FetchFile streams the finished result for id into dest and reports the
// server-advertised filename.
func (c *Client) FetchFile(ctx context.Context, id string, dest io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/download/"+url.PathEscape(id)+"/file", nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	filename := attachmentName(resp.Header.Get("Content-Disposition"))
	if _, err := io.Copy(dest, resp.Body); err != nil {
		return "", fmt.Errorf("read file stream: %w", err)
	}
	return filename, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.json.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 2048)).Decode(&envelope); err == nil {
		apiErr.Message = envelope.Message
	}
	return apiErr
}

func attachmentName(disposition string) string {
	if disposition == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		return params["filename"]
	}
	return ""
}
