package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/llm"
)

const (
	provider          = "gemini"
	defaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	defaultTextModel  = "gemini-2.5-flash"
	defaultImageModel = "imagen-4.0-generate-001"
	defaultTimeout    = 120 * time.Second
	maxResponseBody   = 32 << 20
)

// Config describes how to reach the Gemini REST API.
type Config struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// Client calls Gemini generateContent for text and Imagen predict for images.
type Client struct {
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
	httpClient *http.Client
}

var (
	_ llm.TextModel  = (*Client)(nil)
	_ llm.ImageModel = (*Client)(nil)
)

// NewClient validates cfg and returns a client.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	textModel := strings.TrimSpace(cfg.TextModel)
	if textModel == "" {
		textModel = defaultTextModel
	}
	imageModel := strings.TrimSpace(cfg.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		textModel:  textModel,
		imageModel: imageModel,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// GenerateText runs one generateContent call and concatenates the text parts
// of the first candidate.
func (c *Client) GenerateText(ctx context.Context, req llm.TextRequest) (string, error) {
	genCfg := map[string]any{}
	if req.ResponseMIME != "" {
		genCfg["responseMimeType"] = req.ResponseMIME
	}
	if req.Schema != nil {
		genCfg["responseSchema"] = req.Schema
	}
	if req.Temperature != nil {
		genCfg["temperature"] = *req.Temperature
	}
	body := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]any{{"text": req.Prompt}}},
		},
	}
	if len(genCfg) > 0 {
		body["generationConfig"] = genCfg
	}

	raw, err := c.post(ctx, modelOr(req.Model, c.textModel), "generateContent", body)
	if err != nil {
		return "", err
	}

	parsed := gjson.ParseBytes(raw)
	if reason := parsed.Get("promptFeedback.blockReason"); reason.Exists() {
		return "", xerrors.New(xerrors.CodeBackendResponse,
			fmt.Sprintf("gemini blocked the prompt: %s", reason.String()),
			xerrors.WithMetadata("provider", provider))
	}
	var sb strings.Builder
	parsed.Get("candidates.0.content.parts.#.text").ForEach(func(_, part gjson.Result) bool {
		sb.WriteString(part.String())
		return true
	})
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", llm.EmptyResponseError(provider, "text response")
	}
	return text, nil
}

// GenerateImages runs one Imagen predict call.
func (c *Client) GenerateImages(ctx context.Context, req llm.ImageRequest) ([]llm.Image, error) {
	count := req.Count
	if count <= 0 {
		count = 1
	}
	params := map[string]any{"sampleCount": count}
	if req.AspectRatio != "" {
		params["aspectRatio"] = req.AspectRatio
	}
	if req.MIMEType != "" {
		params["outputOptions"] = map[string]any{"mimeType": req.MIMEType}
	}
	body := map[string]any{
		"instances":  []map[string]any{{"prompt": req.Prompt}},
		"parameters": params,
	}

	raw, err := c.post(ctx, modelOr(req.Model, c.imageModel), "predict", body)
	if err != nil {
		return nil, err
	}

	var images []llm.Image
	gjson.GetBytes(raw, "predictions").ForEach(func(_, p gjson.Result) bool {
		data := p.Get("bytesBase64Encoded").String()
		if data == "" {
			return true
		}
		mime := p.Get("mimeType").String()
		if mime == "" {
			mime = "image/png"
		}
		images = append(images, llm.Image{Base64: data, MIMEType: mime})
		return true
	})
	return images, nil
}

func (c *Client) post(ctx context.Context, model, action string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:%s", c.baseURL, strings.TrimPrefix(model, "models/"), action)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.TransportError(provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, llm.TransportError(provider, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		msg := gjson.GetBytes(raw, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return nil, llm.StatusError(provider, resp, msg)
	}
	if !gjson.ValidBytes(raw) {
		return nil, xerrors.New(xerrors.CodeBackendResponse, "gemini returned malformed JSON",
			xerrors.WithMetadata("provider", provider))
	}
	return raw, nil
}

func modelOr(model, fallback string) string {
	if m := strings.TrimSpace(model); m != "" {
		return m
	}
	return fallback
}
