package songforge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGenerateSendsTokenAndDecodesSong(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/songs" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("expected bearer token, got %q", got)
		}
		var req SongRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if req.PresetID != "indie-dreamscape" {
			t.Fatalf("unexpected preset %q", req.PresetID)
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"song": Song{Title: "Paper Moons", Lyrics: "[Verse]\nla"}})
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	client.SetToken("secret")

	song, err := client.Generate(context.Background(), SongRequest{PresetID: "indie-dreamscape"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if song.Title != "Paper Moons" {
		t.Fatalf("unexpected title %q", song.Title)
	}
}

func TestAPIErrorIsDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"code":"NO_ACTIVE_PLUGIN","message":"no active lyrics plugin"}`))
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, srv.Client())
	_, err := client.Activate(context.Background(), "gemini-default")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Code != "NO_ACTIVE_PLUGIN" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestPluginPathsKeepSlashes(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_ = json.NewEncoder(w).Encode(PluginInfo{ID: "offline-default/midi", Active: true})
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL+"/", srv.Client())
	ctx := context.Background()
	info, err := client.Deactivate(ctx, "offline-default/midi")
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if info.ID != "offline-default/midi" {
		t.Fatalf("unexpected id %q", info.ID)
	}
	if _, err := client.Initialize(ctx, "offline-default", nil); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := client.Unregister(ctx, "offline-default/midi"); err != nil {
		t.Fatalf("unregister: %v", err)
	}

	want := []string{
		"POST /api/v1/plugins/offline-default/midi/deactivate",
		"POST /api/v1/plugins/offline-default/initialize",
		"DELETE /api/v1/plugins/offline-default/midi",
	}
	for i, p := range want {
		if paths[i] != p {
			t.Fatalf("request %d: want %q got %q", i, p, paths[i])
		}
	}
}

func TestListJobsQueryAndWait(t *testing.T) {
	polls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/jobs":
			if got := r.URL.Query().Get("status"); got != "failed,succeeded" {
				t.Fatalf("unexpected status filter %q", got)
			}
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Fatalf("unexpected limit %q", got)
			}
			_ = json.NewEncoder(w).Encode([]Job{{ID: "a", Status: "failed"}})
		case "/api/v1/jobs/a":
			polls++
			status := "running"
			if polls > 1 {
				status = "succeeded"
			}
			_ = json.NewEncoder(w).Encode(Job{ID: "a", Status: status})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client, _ := NewClient(srv.URL, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	jobs, err := client.ListJobs(ctx, JobFilter{Statuses: []string{"failed", "succeeded"}, Limit: 5})
	if err != nil {
		t.Fatalf("list jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %d", len(jobs))
	}

	job, err := client.WaitForJob(ctx, "a", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if job.Status != "succeeded" || polls != 2 {
		t.Fatalf("unexpected wait result: status=%s polls=%d", job.Status, polls)
	}
}
