package genai

import (
	"context"
	"time"

	"SongForge/internal/llm"
	"SongForge/internal/llm/gemini"
	"SongForge/internal/llm/openai"
	"SongForge/pkg/plugin"
)

// Configuration keys understood by the plugin.
const (
	KeyAPIKey     = "API_KEY"
	KeyTextModel  = "textModel"
	KeyImageModel = "imageModel"
	KeyBaseURL    = "baseURL"
	KeyTimeout    = "timeout"
)

// ClientFactory builds the backend clients from resolved settings.
type ClientFactory func(ctx context.Context, settings map[string]string) (llm.TextModel, llm.ImageModel, error)

// GeminiIdentity describes the default Google Gemini plugin.
func GeminiIdentity() plugin.Identity {
	return plugin.Identity{
		ID:             "gemini-default",
		Name:           "Google Gemini",
		Version:        "1.0.0",
		Description:    "Multi-modal plugin using Google Gemini for lyrics, MIDI, cover art, analysis and evaluation",
		RequiredConfig: []string{KeyAPIKey},
		OptionalConfig: map[string]string{
			KeyTextModel:  "gemini-2.5-flash",
			KeyImageModel: "imagen-4.0-generate-001",
			KeyBaseURL:    "https://generativelanguage.googleapis.com/v1beta",
			KeyTimeout:    "120s",
		},
	}
}

// OpenAIIdentity describes the plugin for OpenAI-compatible endpoints.
func OpenAIIdentity() plugin.Identity {
	return plugin.Identity{
		ID:             "openai-default",
		Name:           "OpenAI",
		Version:        "1.0.0",
		Description:    "Plugin for OpenAI-compatible chat and image endpoints",
		RequiredConfig: []string{KeyAPIKey},
		OptionalConfig: map[string]string{
			KeyTextModel:  "gpt-4o-mini",
			KeyImageModel: "gpt-image-1",
			KeyBaseURL:    "https://api.openai.com/v1",
			KeyTimeout:    "120s",
		},
	}
}

// NewGemini returns an uninitialized Gemini-backed plugin.
func NewGemini() *Plugin {
	return New(GeminiIdentity(), geminiClients)
}

// NewOpenAI returns an uninitialized plugin for an OpenAI-compatible backend.
func NewOpenAI() *Plugin {
	return New(OpenAIIdentity(), openAIClients)
}

func geminiClients(_ context.Context, s map[string]string) (llm.TextModel, llm.ImageModel, error) {
	timeout, err := parseTimeout(s[KeyTimeout])
	if err != nil {
		return nil, nil, err
	}
	c, err := gemini.NewClient(gemini.Config{
		APIKey:     s[KeyAPIKey],
		BaseURL:    s[KeyBaseURL],
		TextModel:  s[KeyTextModel],
		ImageModel: s[KeyImageModel],
		Timeout:    timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, c, nil
}

func openAIClients(_ context.Context, s map[string]string) (llm.TextModel, llm.ImageModel, error) {
	timeout, err := parseTimeout(s[KeyTimeout])
	if err != nil {
		return nil, nil, err
	}
	c, err := openai.NewClient(openai.Config{
		APIKey:     s[KeyAPIKey],
		BaseURL:    s[KeyBaseURL],
		TextModel:  s[KeyTextModel],
		ImageModel: s[KeyImageModel],
		Timeout:    timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return c, c, nil
}

func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}
