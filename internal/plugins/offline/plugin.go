// Package offline provides a deterministic plugin that implements every
// capability without a network backend. It backs the CLI demo mode and tests.
package offline

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/songtext"
	"SongForge/pkg/plugin"
)

// ID of the offline plugin.
const ID = "offline-default"

// Plugin renders songs from templates.
type Plugin struct {
	*plugin.Lifecycle
}

var (
	_ plugin.LyricsGenerator = (*Plugin)(nil)
	_ plugin.MidiGenerator   = (*Plugin)(nil)
	_ plugin.ImageGenerator  = (*Plugin)(nil)
	_ plugin.LyricsAnalyzer  = (*Plugin)(nil)
	_ plugin.SongEvaluator   = (*Plugin)(nil)
)

// New returns an uninitialized offline plugin.
func New() *Plugin {
	return &Plugin{Lifecycle: plugin.NewLifecycle(plugin.Identity{
		ID:          ID,
		Name:        "Offline Studio",
		Version:     "1.0.0",
		Description: "Deterministic songs without a model backend",
		OptionalConfig: map[string]string{
			"imageSize": "64",
			"bars":      "8",
		},
	})}
}

// Initialize validates the optional numeric settings.
func (p *Plugin) Initialize(_ context.Context, config map[string]string) error {
	resolved, err := p.Resolve(config)
	if err != nil {
		p.Reset()
		return err
	}
	for _, key := range []string{"imageSize", "bars"} {
		if n, err := strconv.Atoi(resolved[key]); err != nil || n <= 0 || n > 512 {
			p.Reset()
			return xerrors.New(xerrors.CodePluginConfig, fmt.Sprintf("%s must be a positive integer up to 512", key),
				xerrors.WithMetadata("plugin_id", ID))
		}
	}
	p.MarkReady(resolved)
	return nil
}

// Dispose marks the plugin not ready.
func (p *Plugin) Dispose() error {
	p.Reset()
	return nil
}

func (p *Plugin) intSetting(key string) int {
	n, _ := strconv.Atoi(p.Setting(key))
	return n
}

// GenerateLyrics assembles lyrics following the requested structure.
func (p *Plugin) GenerateLyrics(_ context.Context, params plugin.LyricsParams) (plugin.LyricsResult, error) {
	if err := p.Ensure(); err != nil {
		return plugin.LyricsResult{}, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n\n", titleFor(params.LyricTheme))
	fmt.Fprintf(&b, "Suno Prompt: %s\n\n", stylePromptFor(params))
	for i, section := range sectionsFor(params.Structure) {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s]\n%s", section, strings.Join(linesFor(section, params.LyricTheme), "\n"))
	}
	return songtext.ParseLyrics(b.String())
}

// GenerateMidi writes a single-track arpeggio in the requested key and tempo.
func (p *Plugin) GenerateMidi(_ context.Context, params plugin.MidiParams) (string, error) {
	if err := p.Ensure(); err != nil {
		return "", err
	}
	raw := buildMidi(params.Key, params.BPM, p.intSetting("bars"))
	return songtext.NormalizeMidi(base64.StdEncoding.EncodeToString(raw))
}

// GenerateImage paints a gradient seeded by the song.
func (p *Plugin) GenerateImage(_ context.Context, params plugin.ImageParams) (string, error) {
	if err := p.Ensure(); err != nil {
		return "", err
	}
	return renderCover(p.intSetting("imageSize"), params.Title+"|"+params.LyricTheme+"|"+params.StylePrompt)
}

// EditImage repaints the cover with the edit folded into the seed.
func (p *Plugin) EditImage(_ context.Context, original plugin.ImageParams, editPrompt string) (string, error) {
	if err := p.Ensure(); err != nil {
		return "", err
	}
	if strings.TrimSpace(editPrompt) == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, "edit prompt cannot be empty")
	}
	return renderCover(p.intSetting("imageSize"), original.Title+"|"+original.LyricTheme+"|"+editPrompt)
}

// AnalyzeLyrics suggests a rewrite of the chorus, or the first section.
func (p *Plugin) AnalyzeLyrics(_ context.Context, lyrics, title, theme string) (plugin.AnalysisResult, error) {
	if err := p.Ensure(); err != nil {
		return plugin.AnalysisResult{}, err
	}
	sections := songtext.StructureLyrics(lyrics)
	target := songtext.Section{Tag: "[Chorus]"}
	found := false
	for _, s := range sections {
		if strings.EqualFold(s.Tag, "[Chorus]") {
			target, found = s, true
			break
		}
	}
	if !found {
		for _, s := range sections {
			if s.Tag != "" {
				target = s
				break
			}
		}
	}
	revised := make([]string, 0, len(target.Lines)+1)
	for _, line := range target.Lines {
		revised = append(revised, strings.TrimSpace(line))
	}
	revised = append(revised, fmt.Sprintf("And %s is all we know", strings.ToLower(firstWords(theme, 4))))

	return plugin.AnalysisResult{
		Theme:    theme,
		Mood:     moodFor(lyrics),
		Imagery:  fmt.Sprintf("%d sections built around %q", len(sections), firstWords(theme, 3)),
		Critique: fmt.Sprintf("%q reads clearly; the %s could land harder with a closing tag line.", title, strings.Trim(target.Tag, "[]")),
		BiasCheck: plugin.BiasCheck{
			IsBiased:  false,
			Reasoning: "No stereotypes detected by the offline checker.",
		},
		Suggestion: plugin.Suggestion{Section: target.Tag, RevisedLyrics: strings.Join(revised, "\n")},
	}, nil
}

// EvaluateSong scores lyrics from simple counts.
func (p *Plugin) EvaluateSong(_ context.Context, lyrics, title string, params plugin.LyricsParams) (plugin.EvaluationMetrics, error) {
	if err := p.Ensure(); err != nil {
		return plugin.EvaluationMetrics{}, err
	}
	return scoreLyrics(lyrics, title, params), nil
}
