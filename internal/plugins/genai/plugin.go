package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/llm"
	"SongForge/internal/songtext"
	"SongForge/pkg/logger"
	"SongForge/pkg/plugin"
)

// Plugin implements every capability contract on top of one text model and
// one image model.
type Plugin struct {
	*plugin.Lifecycle

	factory ClientFactory

	mu    sync.RWMutex
	text  llm.TextModel
	image llm.ImageModel
}

var (
	_ plugin.LyricsGenerator = (*Plugin)(nil)
	_ plugin.MidiGenerator   = (*Plugin)(nil)
	_ plugin.ImageGenerator  = (*Plugin)(nil)
	_ plugin.LyricsAnalyzer  = (*Plugin)(nil)
	_ plugin.SongEvaluator   = (*Plugin)(nil)
)

// New builds a plugin with the given identity whose backend clients come from factory.
func New(identity plugin.Identity, factory ClientFactory) *Plugin {
	return &Plugin{Lifecycle: plugin.NewLifecycle(identity), factory: factory}
}

// Initialize validates config and builds the backend clients.
func (p *Plugin) Initialize(ctx context.Context, config map[string]string) error {
	id := p.Identity().ID
	resolved, err := p.Resolve(config)
	if err != nil {
		p.clear()
		return err
	}
	text, image, err := p.factory(ctx, resolved)
	if err != nil {
		p.clear()
		return xerrors.Wrap(xerrors.CodePluginConfig, err, fmt.Sprintf("configure plugin %s", id),
			xerrors.WithMetadata("plugin_id", id))
	}

	p.mu.Lock()
	p.text, p.image = text, image
	p.mu.Unlock()
	p.MarkReady(resolved)

	logger.Named("genai").Info("plugin initialized",
		slog.String("plugin_id", id),
		slog.String("text_model", resolved[KeyTextModel]),
		slog.String("image_model", resolved[KeyImageModel]),
	)
	return nil
}

// Dispose drops the backend clients.
func (p *Plugin) Dispose() error {
	p.clear()
	return nil
}

func (p *Plugin) clear() {
	p.mu.Lock()
	p.text, p.image = nil, nil
	p.mu.Unlock()
	p.Reset()
}

func (p *Plugin) clients() (llm.TextModel, llm.ImageModel, error) {
	if err := p.Ensure(); err != nil {
		return nil, nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.text == nil || p.image == nil {
		return nil, nil, plugin.NotReadyError(p.Identity().ID)
	}
	return p.text, p.image, nil
}

// GenerateLyrics writes a title, style prompt and lyrics.
func (p *Plugin) GenerateLyrics(ctx context.Context, params plugin.LyricsParams) (plugin.LyricsResult, error) {
	text, _, err := p.clients()
	if err != nil {
		return plugin.LyricsResult{}, err
	}
	out, err := text.GenerateText(ctx, llm.TextRequest{
		Model:        p.Setting(KeyTextModel),
		Prompt:       lyricsPrompt(params),
		ResponseMIME: llm.MIMEText,
	})
	if err != nil {
		return plugin.LyricsResult{}, err
	}
	return songtext.ParseLyrics(out)
}

// GenerateMidi asks for a base64 MIDI sketch and normalizes it.
func (p *Plugin) GenerateMidi(ctx context.Context, params plugin.MidiParams) (string, error) {
	text, _, err := p.clients()
	if err != nil {
		return "", err
	}
	out, err := text.GenerateText(ctx, llm.TextRequest{
		Model:        p.Setting(KeyTextModel),
		Prompt:       midiPrompt(params),
		ResponseMIME: llm.MIMEText,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", xerrors.New(xerrors.CodeBackendResponse, "received an empty MIDI response from the model")
	}
	return songtext.NormalizeMidi(out)
}

// GenerateImage renders cover art and returns it as a data URI.
func (p *Plugin) GenerateImage(ctx context.Context, params plugin.ImageParams) (string, error) {
	return p.render(ctx, coverPrompt(params), "a different theme")
}

// EditImage re-renders the cover from the original concept plus an edit instruction.
func (p *Plugin) EditImage(ctx context.Context, original plugin.ImageParams, editPrompt string) (string, error) {
	if strings.TrimSpace(editPrompt) == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "edit prompt cannot be empty")
	}
	return p.render(ctx, editPromptFor(original, editPrompt), "a different prompt")
}

func (p *Plugin) render(ctx context.Context, prompt, retryHint string) (string, error) {
	_, image, err := p.clients()
	if err != nil {
		return "", err
	}
	images, err := image.GenerateImages(ctx, llm.ImageRequest{
		Model:       p.Setting(KeyImageModel),
		Prompt:      prompt,
		Count:       1,
		AspectRatio: "1:1",
		MIMEType:    "image/png",
	})
	if err != nil {
		return "", err
	}
	if len(images) == 0 {
		return "", xerrors.New(xerrors.CodeBackendResponse,
			"model did not return any images, possibly due to a safety policy violation; try "+retryHint)
	}
	mime := images[0].MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + images[0].Base64, nil
}

// AnalyzeLyrics critiques lyrics and proposes one revised section.
func (p *Plugin) AnalyzeLyrics(ctx context.Context, lyrics, title, theme string) (plugin.AnalysisResult, error) {
	var result plugin.AnalysisResult
	err := p.generateJSON(ctx, analysisPrompt(lyrics, title, theme), analysisSchema, "analysis", &result)
	return result, err
}

// EvaluateSong scores a song; scores are clamped into [0, 100].
func (p *Plugin) EvaluateSong(ctx context.Context, lyrics, title string, params plugin.LyricsParams) (plugin.EvaluationMetrics, error) {
	var metrics plugin.EvaluationMetrics
	if err := p.generateJSON(ctx, evaluationPrompt(lyrics, title, params), evaluationSchema, "evaluation", &metrics); err != nil {
		return plugin.EvaluationMetrics{}, err
	}
	return metrics.Clamp(), nil
}

func (p *Plugin) generateJSON(ctx context.Context, prompt string, schema map[string]any, what string, out any) error {
	text, _, err := p.clients()
	if err != nil {
		return err
	}
	raw, err := text.GenerateText(ctx, llm.TextRequest{
		Model:        p.Setting(KeyTextModel),
		Prompt:       prompt,
		ResponseMIME: llm.MIMEJSON,
		Schema:       schema,
	})
	if err != nil {
		return err
	}
	payload := stripFence(raw)
	if payload == "" {
		return xerrors.New(xerrors.CodeBackendResponse, fmt.Sprintf("received an empty %s from the model", what))
	}
	if !gjson.Valid(payload) {
		return xerrors.New(xerrors.CodeBackendResponse, fmt.Sprintf("model returned a malformed %s", what))
	}
	if missing := missingFields(gjson.Parse(payload), schema, ""); len(missing) > 0 {
		return xerrors.New(xerrors.CodeBackendResponse,
			fmt.Sprintf("%s is missing fields: %s", what, strings.Join(missing, ", ")))
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return xerrors.Wrap(xerrors.CodeBackendResponse, err, fmt.Sprintf("decode %s", what))
	}
	return nil
}

// missingFields walks the schema's required lists and reports absent paths.
func missingFields(doc gjson.Result, schema map[string]any, prefix string) []string {
	var missing []string
	required, _ := schema["required"].([]string)
	props, _ := schema["properties"].(map[string]any)
	for _, name := range required {
		field := doc.Get(name)
		path := prefix + name
		if !field.Exists() {
			missing = append(missing, path)
			continue
		}
		if sub, ok := props[name].(map[string]any); ok && field.IsObject() {
			missing = append(missing, missingFields(field, sub, path+".")...)
		}
	}
	return missing
}

func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
