package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	client.httpClient = srv.Client()
	return client
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{APIKey: "  "})
	assert.Error(t, err)

	c, err := NewClient(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, defaultTextModel, c.textModel)
	assert.Equal(t, defaultImageModel, c.imageModel)
}

func TestGenerateText(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Title: Neon"},{"text":"\n[Verse]"}]}}]}`))
	})

	text, err := client.GenerateText(context.Background(), llm.TextRequest{
		Prompt:       "write a song",
		ResponseMIME: llm.MIMEJSON,
		Schema:       map[string]any{"type": "OBJECT"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Title: Neon\n[Verse]", text)

	genCfg := body["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", genCfg["responseMimeType"])
	assert.NotNil(t, genCfg["responseSchema"])
}

func TestGenerateTextEmptyAndBlocked(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})
	_, err := client.GenerateText(context.Background(), llm.TextRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeBackendResponse, xerrors.CodeOf(err))

	blocked := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"promptFeedback":{"blockReason":"SAFETY"}}`))
	})
	_, err = blocked.GenerateText(context.Background(), llm.TextRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGenerateTextHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exhausted"}}`))
	})
	_, err := client.GenerateText(context.Background(), llm.TextRequest{Prompt: "x"})
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeBackendFailure, xerrors.CodeOf(err))
	assert.True(t, xerrors.RetryableError(err))
	assert.Contains(t, err.Error(), "quota exhausted")

	denied := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusForbidden)
	})
	_, err = denied.GenerateText(context.Background(), llm.TextRequest{Prompt: "x"})
	require.Error(t, err)
	assert.False(t, xerrors.RetryableError(err))
}

func TestGenerateImages(t *testing.T) {
	var body map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/imagen-custom:predict", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"predictions":[{"bytesBase64Encoded":"aW1n","mimeType":"image/png"},{"raiFilteredReason":"x"}]}`))
	})

	images, err := client.GenerateImages(context.Background(), llm.ImageRequest{
		Model: "imagen-custom", Prompt: "cover", AspectRatio: "1:1",
	})
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, llm.Image{Base64: "aW1n", MIMEType: "image/png"}, images[0])

	params := body["parameters"].(map[string]any)
	assert.Equal(t, float64(1), params["sampleCount"])
	assert.Equal(t, "1:1", params["aspectRatio"])
}
