package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"SongForge/internal/llm"
)

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatalf("expected error when api key is missing")
	}
}

func TestGenerateTextSuccess(t *testing.T) {
	var captured struct {
		Authorization string
		Body          map[string]any
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Authorization = r.Header.Get("Authorization")
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&captured.Body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"theme":"rain"}`}},
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	text, err := client.GenerateText(context.Background(), llm.TextRequest{
		Prompt:       "analyze",
		ResponseMIME: llm.MIMEJSON,
		Schema:       map[string]any{"type": "OBJECT"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != `{"theme":"rain"}` {
		t.Fatalf("unexpected text: %q", text)
	}
	if !strings.HasPrefix(captured.Authorization, "Bearer ") {
		t.Fatalf("authorization header missing: %q", captured.Authorization)
	}
	if captured.Body["model"] != defaultTextModel {
		t.Fatalf("unexpected model: %v", captured.Body["model"])
	}
	format, _ := captured.Body["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("json response format not requested: %v", captured.Body["response_format"])
	}
	messages, _ := captured.Body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(messages))
	}
}

func TestGenerateTextHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found"}}`))
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	_, err = client.GenerateText(context.Background(), llm.TextRequest{Prompt: "test"})
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected status error carrying provider message, got %v", err)
	}
}

func TestGenerateImages(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"b64_json": "aW1n"}},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Config{APIKey: "test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.httpClient = srv.Client()

	images, err := client.GenerateImages(context.Background(), llm.ImageRequest{Prompt: "cover", AspectRatio: "1:1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(images) != 1 || images[0].Base64 != "aW1n" || images[0].MIMEType != "image/png" {
		t.Fatalf("unexpected images: %+v", images)
	}
	if _, ok := body["response_format"]; ok {
		t.Fatalf("gpt-image models must not receive response_format")
	}
	if body["size"] != "1024x1024" {
		t.Fatalf("unexpected size: %v", body["size"])
	}
}
