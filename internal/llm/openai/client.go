package openai

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

	"SongForge/internal/llm"
)

const (
	provider          = "openai"
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultTextModel  = "gpt-4o-mini"
	defaultImageModel = "gpt-image-1"
	defaultTimeout    = 120 * time.Second
)

// Config describes how to reach an OpenAI-compatible API.
type Config struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// Client calls chat completions for text and images/generations for images.
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
		return nil, errors.New("openai API key is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

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
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// GenerateText sends the prompt as a single user message.
func (c *Client) GenerateText(ctx context.Context, req llm.TextRequest) (string, error) {
	payload, err := c.buildChatPayload(req)
	if err != nil {
		return "", err
	}

	resp, err := c.post(ctx, "/chat/completions", payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", llm.EmptyResponseError(provider, "choice list")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", llm.EmptyResponseError(provider, "text response")
	}
	return content, nil
}

// GenerateImages requests base64 encoded renders.
func (c *Client) GenerateImages(ctx context.Context, req llm.ImageRequest) ([]llm.Image, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.imageModel
	}
	count := req.Count
	if count <= 0 {
		count = 1
	}
	body := map[string]any{
		"model":  model,
		"prompt": req.Prompt,
		"n":      count,
		"size":   sizeFor(req.AspectRatio),
	}
	// gpt-image models always return base64 and reject response_format.
	if strings.HasPrefix(model, "dall-e") {
		body["response_format"] = "b64_json"
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode openai image request: %w", err)
	}

	resp, err := c.post(ctx, "/images/generations", encoded)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded struct {
		Data []struct {
			B64JSON string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode openai image response: %w", err)
	}
	mime := req.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	images := make([]llm.Image, 0, len(decoded.Data))
	for _, d := range decoded.Data {
		if d.B64JSON != "" {
			images = append(images, llm.Image{Base64: d.B64JSON, MIMEType: mime})
		}
	}
	return images, nil
}

func (c *Client) post(ctx context.Context, path string, payload []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build openai request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.TransportError(provider, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, llm.StatusError(provider, resp, msg)
	}
	return resp, nil
}

func (c *Client) buildChatPayload(req llm.TextRequest) ([]byte, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.textModel
	}

	var messages []message
	if req.ResponseMIME == llm.MIMEJSON {
		messages = append(messages, message{Role: "system", Content: jsonInstruction(req.Schema)})
	}
	messages = append(messages, message{Role: "user", Content: req.Prompt})

	body := map[string]any{
		"model":    model,
		"messages": messages,
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.ResponseMIME == llm.MIMEJSON {
		body["response_format"] = map[string]string{"type": "json_object"}
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode openai request: %w", err)
	}
	return encoded, nil
}

func jsonInstruction(schema map[string]any) string {
	if schema == nil {
		return "Respond with a single JSON object and nothing else."
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		return "Respond with a single JSON object and nothing else."
	}
	return "Respond with a single JSON object and nothing else. It must match this schema: " + string(encoded)
}

func sizeFor(aspect string) string {
	switch aspect {
	case "16:9", "3:2":
		return "1536x1024"
	case "9:16", "2:3":
		return "1024x1536"
	default:
		return "1024x1024"
	}
}
