package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleReadiness(t *testing.T) {
	p := newFake("gemini-default")
	assert.False(t, p.IsReady())

	_, err := p.GenerateLyrics(context.Background(), LyricsParams{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotReady))

	require.NoError(t, p.Initialize(context.Background(), map[string]string{"API_KEY": "secret"}))
	assert.True(t, p.IsReady())

	require.NoError(t, p.Dispose())
	assert.False(t, p.IsReady())
	require.NoError(t, p.Dispose())
}

func TestLifecycleMissingRequiredKey(t *testing.T) {
	p := newFake("gemini-default")

	for _, cfg := range []map[string]string{nil, {}, {"API_KEY": "   "}} {
		err := p.Initialize(context.Background(), cfg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfig))
		assert.Contains(t, err.Error(), "API_KEY")
		assert.False(t, p.IsReady())
	}
}

func TestLifecycleResolveKeepsKnownKeys(t *testing.T) {
	p := newFake("gemini-default")
	require.NoError(t, p.Initialize(context.Background(), map[string]string{
		"API_KEY": "k",
		"extra":   "ignored",
	}))

	assert.Equal(t, map[string]string{"API_KEY": "k", "textModel": "fake-text"}, p.Settings())
	assert.Equal(t, "", p.Setting("extra"))

	require.NoError(t, p.Initialize(context.Background(), map[string]string{"API_KEY": "k", "textModel": "custom"}))
	assert.Equal(t, "custom", p.Setting("textModel"))
}

func TestLifecycleIdentityIsCopied(t *testing.T) {
	p := newFake("gemini-default")
	id := p.Identity()
	id.RequiredConfig[0] = "CHANGED"
	id.OptionalConfig["textModel"] = "changed"

	fresh := p.Identity()
	assert.Equal(t, []string{"API_KEY"}, fresh.RequiredConfig)
	assert.Equal(t, "fake-text", fresh.OptionalConfig["textModel"])
}

func TestParseCapabilityType(t *testing.T) {
	got, err := ParseCapabilityType(" Lyrics ")
	require.NoError(t, err)
	assert.Equal(t, TypeLyrics, got)

	_, err = ParseCapabilityType("video")
	assert.Error(t, err)

	assert.Equal(t, []CapabilityType{TypeLyrics}, Capabilities(newFake("x")))
	assert.Equal(t, []CapabilityType{TypeLyrics, TypeMidi}, Capabilities(midiOnly{newFake("y")}))
}

func TestValidateParams(t *testing.T) {
	ok := LyricsParams{Genre: "Pop", LyricTheme: "rain", Language: "English", BPM: 120, Creativity: 50}
	require.NoError(t, ValidateParams(ok))

	bad := ok
	bad.Genre = ""
	bad.BPM = 500
	err := ValidateParams(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "genre is required")
	assert.Contains(t, err.Error(), "bpm must satisfy lte=240")

	err = ValidateParams(ImageParams{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lyrics is required")
}

func TestEvaluationMetricsHelpers(t *testing.T) {
	m := EvaluationMetrics{
		OverallScore: 130,
		Lyrical:      LyricalMetrics{RhymeConsistency: 80, EmotionalCoherence: 70, Originality: 61, Clarity: 90},
		Musical:      MusicalMetrics{MelodicInterest: -5, HarmonicQuality: 50, RhythmicConsistency: 50, StructureQuality: 50},
	}.Clamp()

	assert.Equal(t, float64(100), m.OverallScore)
	assert.Equal(t, float64(0), m.Musical.MelodicInterest)
	assert.Equal(t, 75, m.LyricalAverage())
	assert.Equal(t, 38, m.MusicalAverage())
	assert.NotNil(t, m.Feedback)
	assert.NotNil(t, m.Improvements)

	assert.Equal(t, BandExcellent, BandOf(80))
	assert.Equal(t, BandGood, BandOf(79.9))
	assert.Equal(t, BandFair, BandOf(40))
	assert.Equal(t, BandPoor, BandOf(39))
}
