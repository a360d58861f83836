package plugin

import (
	"context"
	"math"
)

// Plugin defines the lifecycle every backend implementation must satisfy.
type Plugin interface {
	// Identity returns the static metadata for the plugin.
	Identity() Identity
	// Initialize validates config against the identity's required keys and
	// prepares the backend client. A failed call leaves the plugin not ready.
	Initialize(ctx context.Context, config map[string]string) error
	// IsReady reports whether Initialize succeeded and Dispose has not run since.
	IsReady() bool
	// Dispose releases the backend client. It is safe to call more than once.
	Dispose() error
}

// LyricsGenerator writes a title, style prompt and lyrics.
type LyricsGenerator interface {
	Plugin
	GenerateLyrics(ctx context.Context, params LyricsParams) (LyricsResult, error)
}

// MidiGenerator produces a base64 encoded MIDI file.
type MidiGenerator interface {
	Plugin
	GenerateMidi(ctx context.Context, params MidiParams) (string, error)
}

// ImageGenerator renders cover art and re-renders it from an edit instruction.
// Both operations return a data URI.
type ImageGenerator interface {
	Plugin
	GenerateImage(ctx context.Context, params ImageParams) (string, error)
	EditImage(ctx context.Context, original ImageParams, editPrompt string) (string, error)
}

// LyricsAnalyzer critiques lyrics and proposes a revised section.
type LyricsAnalyzer interface {
	Plugin
	AnalyzeLyrics(ctx context.Context, lyrics, title, theme string) (AnalysisResult, error)
}

// SongEvaluator scores a song.
type SongEvaluator interface {
	Plugin
	EvaluateSong(ctx context.Context, lyrics, title string, params LyricsParams) (EvaluationMetrics, error)
}

// Implements reports whether p satisfies the contract of capability t.
func Implements(p Plugin, t CapabilityType) bool {
	switch t {
	case TypeLyrics:
		_, ok := p.(LyricsGenerator)
		return ok
	case TypeMidi:
		_, ok := p.(MidiGenerator)
		return ok
	case TypeImage:
		_, ok := p.(ImageGenerator)
		return ok
	case TypeAnalysis:
		_, ok := p.(LyricsAnalyzer)
		return ok
	case TypeEvaluation:
		_, ok := p.(SongEvaluator)
		return ok
	default:
		return false
	}
}

// Capabilities lists the capability types p implements.
func Capabilities(p Plugin) []CapabilityType {
	var out []CapabilityType
	for _, t := range capabilityOrder {
		if Implements(p, t) {
			out = append(out, t)
		}
	}
	return out
}

// LyricsParams are the song parameters used for lyrics generation and evaluation.
type LyricsParams struct {
	Genre          string `json:"genre" validate:"required"`
	Style          string `json:"style"`
	Structure      string `json:"structure"`
	Key            string `json:"key"`
	BPM            int    `json:"bpm" validate:"gte=40,lte=240"`
	LyricTheme     string `json:"lyricTheme" validate:"required"`
	Language       string `json:"language" validate:"required"`
	LyricSentiment string `json:"lyricSentiment"`
	Creativity     int    `json:"creativity" validate:"gte=0,lte=100"`
}

// Midi derives the MIDI parameters for these song parameters.
func (p LyricsParams) Midi(stylePrompt string) MidiParams {
	return MidiParams{Genre: p.Genre, Style: p.Style, Key: p.Key, BPM: p.BPM, StylePrompt: stylePrompt}
}

// MidiParams drive MIDI generation.
type MidiParams struct {
	Genre       string `json:"genre"`
	Style       string `json:"style"`
	Key         string `json:"key"`
	BPM         int    `json:"bpm" validate:"gte=0,lte=240"`
	StylePrompt string `json:"sunoPrompt,omitempty"`
}

// ImageParams drive cover art generation and editing.
type ImageParams struct {
	Title       string `json:"title" validate:"required"`
	LyricTheme  string `json:"lyricTheme"`
	Lyrics      string `json:"lyrics" validate:"required"`
	StylePrompt string `json:"sunoPrompt,omitempty"`
}

// LyricsResult is the output of a lyrics generator.
type LyricsResult struct {
	Title       string `json:"title"`
	Lyrics      string `json:"lyrics"`
	StylePrompt string `json:"stylePrompt"`
}

// AnalysisResult is the critique returned by a lyrics analyzer.
type AnalysisResult struct {
	Theme      string     `json:"theme"`
	Mood       string     `json:"mood"`
	Imagery    string     `json:"imagery"`
	Critique   string     `json:"critique"`
	BiasCheck  BiasCheck  `json:"bias_check"`
	Suggestion Suggestion `json:"suggestion"`
}

// BiasCheck reports potential stereotypes found in lyrics.
type BiasCheck struct {
	IsBiased  bool   `json:"is_biased"`
	Reasoning string `json:"reasoning"`
}

// Suggestion is a rewritten lyric section. Section matches a header in the lyrics, e.g. "[Chorus]".
type Suggestion struct {
	Section       string `json:"section"`
	RevisedLyrics string `json:"revised_lyrics"`
}

// EvaluationMetrics scores a song; every score is in [0, 100].
type EvaluationMetrics struct {
	OverallScore float64        `json:"overallScore"`
	Lyrical      LyricalMetrics `json:"lyrical"`
	Musical      MusicalMetrics `json:"musical"`
	Feedback     []string       `json:"feedback"`
	Improvements []string       `json:"improvements"`
}

// LyricalMetrics are the lyric-side scores.
type LyricalMetrics struct {
	RhymeConsistency   float64 `json:"rhymeConsistency"`
	EmotionalCoherence float64 `json:"emotionalCoherence"`
	Originality        float64 `json:"originality"`
	Clarity            float64 `json:"clarity"`
}

// MusicalMetrics are the music-side scores.
type MusicalMetrics struct {
	MelodicInterest     float64 `json:"melodicInterest"`
	HarmonicQuality     float64 `json:"harmonicQuality"`
	RhythmicConsistency float64 `json:"rhythmicConsistency"`
	StructureQuality    float64 `json:"structureQuality"`
}

// LyricalAverage is the rounded mean of the four lyrical scores.
func (m EvaluationMetrics) LyricalAverage() int {
	l := m.Lyrical
	return int(math.Round((l.RhymeConsistency + l.EmotionalCoherence + l.Originality + l.Clarity) / 4))
}

// MusicalAverage is the rounded mean of the four musical scores.
func (m EvaluationMetrics) MusicalAverage() int {
	s := m.Musical
	return int(math.Round((s.MelodicInterest + s.HarmonicQuality + s.RhythmicConsistency + s.StructureQuality) / 4))
}

// Clamp limits every score to [0, 100].
func (m EvaluationMetrics) Clamp() EvaluationMetrics {
	c := func(v float64) float64 { return math.Max(0, math.Min(100, v)) }
	m.OverallScore = c(m.OverallScore)
	m.Lyrical = LyricalMetrics{
		RhymeConsistency:   c(m.Lyrical.RhymeConsistency),
		EmotionalCoherence: c(m.Lyrical.EmotionalCoherence),
		Originality:        c(m.Lyrical.Originality),
		Clarity:            c(m.Lyrical.Clarity),
	}
	m.Musical = MusicalMetrics{
		MelodicInterest:     c(m.Musical.MelodicInterest),
		HarmonicQuality:     c(m.Musical.HarmonicQuality),
		RhythmicConsistency: c(m.Musical.RhythmicConsistency),
		StructureQuality:    c(m.Musical.StructureQuality),
	}
	if m.Feedback == nil {
		m.Feedback = []string{}
	}
	if m.Improvements == nil {
		m.Improvements = []string{}
	}
	return m
}

// ScoreBand buckets a score the way the evaluation view colours it.
type ScoreBand string

const (
	BandExcellent ScoreBand = "excellent"
	BandGood      ScoreBand = "good"
	BandFair      ScoreBand = "fair"
	BandPoor      ScoreBand = "poor"
)

// BandOf returns the band for score: >=80 excellent, >=60 good, >=40 fair, else poor.
func BandOf(score float64) ScoreBand {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 60:
		return BandGood
	case score >= 40:
		return BandFair
	default:
		return BandPoor
	}
}
