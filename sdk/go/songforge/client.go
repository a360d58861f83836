package songforge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"SongForge/pkg/plugin"
)

// DefaultHTTPTimeout applies to clients created without an http.Client.
// Synchronous generation can take a while, so it is generous.
const DefaultHTTPTimeout = 3 * time.Minute

// Client talks to the SongForge REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("songforge api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("songforge api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient builds a client for rawURL, the server root without /api/v1.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// SetToken sets the bearer token sent with every request.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// ListPlugins returns registry entries, optionally of one type.
func (c *Client) ListPlugins(ctx context.Context, t plugin.CapabilityType) ([]PluginInfo, error) {
	endpoint := "/plugins"
	if t != "" {
		endpoint += "?type=" + url.QueryEscape(string(t))
	}
	var out []PluginInfo
	return out, c.call(ctx, http.MethodGet, endpoint, nil, &out)
}

// Summary returns registry counts and active ids.
func (c *Client) Summary(ctx context.Context) (plugin.Summary, error) {
	var out plugin.Summary
	return out, c.call(ctx, http.MethodGet, "/plugins/summary", nil, &out)
}

// GetPlugin returns one registry entry.
func (c *Client) GetPlugin(ctx context.Context, id string) (PluginInfo, error) {
	var out PluginInfo
	return out, c.call(ctx, http.MethodGet, "/plugins/"+id, nil, &out)
}

// Activate makes id the active plugin of its type.
func (c *Client) Activate(ctx context.Context, id string) (PluginInfo, error) {
	var out PluginInfo
	return out, c.call(ctx, http.MethodPost, "/plugins/"+id+"/activate", nil, &out)
}

// Deactivate clears the active flag of id.
func (c *Client) Deactivate(ctx context.Context, id string) (PluginInfo, error) {
	var out PluginInfo
	return out, c.call(ctx, http.MethodPost, "/plugins/"+id+"/deactivate", nil, &out)
}

// Initialize configures the plugin registered as id.
func (c *Client) Initialize(ctx context.Context, id string, config map[string]string) (PluginInfo, error) {
	if config == nil {
		config = map[string]string{}
	}
	var out PluginInfo
	body := map[string]any{"config": config}
	return out, c.call(ctx, http.MethodPost, "/plugins/"+id+"/initialize", body, &out)
}

// Unregister removes id from the registry.
func (c *Client) Unregister(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/plugins/"+id, nil, nil)
}

// Presets lists the preset catalog.
func (c *Client) Presets(ctx context.Context) ([]Preset, error) {
	var out []Preset
	return out, c.call(ctx, http.MethodGet, "/presets", nil, &out)
}

// Generate runs a synchronous generation.
func (c *Client) Generate(ctx context.Context, req SongRequest) (*Song, error) {
	return c.songCall(ctx, "/songs", req)
}

// Analyze returns song with a critique attached.
func (c *Client) Analyze(ctx context.Context, song *Song) (*Song, error) {
	return c.songCall(ctx, "/songs/analyze", song)
}

// Evaluate returns song with quality scores attached.
func (c *Client) Evaluate(ctx context.Context, song *Song) (*Song, error) {
	return c.songCall(ctx, "/songs/evaluate", song)
}

// ApplySuggestion applies the pending analysis suggestion.
func (c *Client) ApplySuggestion(ctx context.Context, song *Song) (*Song, error) {
	return c.songCall(ctx, "/songs/apply-suggestion", song)
}

// EditImage re-renders the cover art with an edit prompt.
func (c *Client) EditImage(ctx context.Context, song *Song, prompt string) (*Song, error) {
	return c.songCall(ctx, "/songs/edit-image", map[string]any{"song": song, "prompt": prompt})
}

func (c *Client) songCall(ctx context.Context, endpoint string, payload any) (*Song, error) {
	var env songEnvelope
	if err := c.call(ctx, http.MethodPost, endpoint, payload, &env); err != nil {
		return nil, err
	}
	return env.Song, nil
}

// SubmitJob queues an asynchronous generation.
func (c *Client) SubmitJob(ctx context.Context, sub JobSubmission) (*Job, error) {
	var out Job
	if err := c.call(ctx, http.MethodPost, "/jobs", sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetJob fetches one job.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	var out Job
	if err := c.call(ctx, http.MethodGet, "/jobs/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListJobs lists jobs matching filter.
func (c *Client) ListJobs(ctx context.Context, filter JobFilter) ([]Job, error) {
	var out []Job
	return out, c.call(ctx, http.MethodGet, "/jobs"+filter.query(), nil, &out)
}

// JobStats counts jobs matching filter.
func (c *Client) JobStats(ctx context.Context, filter JobFilter) (JobStats, error) {
	var out JobStats
	return out, c.call(ctx, http.MethodGet, "/jobs/stats"+filter.query(), nil, &out)
}

// WaitForJob polls until the job succeeds or fails, or ctx ends.
func (c *Client) WaitForJob(ctx context.Context, id string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}
		if job.Status == "succeeded" || job.Status == "failed" {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (f JobFilter) query() string {
	v := url.Values{}
	if len(f.Statuses) > 0 {
		v.Set("status", strings.Join(f.Statuses, ","))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		v.Set("offset", strconv.Itoa(f.Offset))
	}
	if f.Query != "" {
		v.Set("q", f.Query)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) call(ctx context.Context, method, endpoint string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	rawPath, rawQuery, _ := strings.Cut(endpoint, "?")
	u := *c.baseURL
	u.Path = path.Join(c.baseURL.Path, "/api/v1", rawPath)
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		_ = json.Unmarshal(data, apiErr)
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
