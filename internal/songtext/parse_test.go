package songtext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "SongForge/internal/errors"
)

func TestParseLyricsStructuredResponse(t *testing.T) {
	text := `
Title: Neon Rain

Suno Prompt: Dark Synth-pop, Male Vocals, Driving Bass, 115bpm

[Verse 1]
Streetlights hum a minor key

[Chorus]
Neon rain, neon rain
`
	got, err := ParseLyrics(text)
	require.NoError(t, err)
	assert.Equal(t, "Neon Rain", got.Title)
	assert.Equal(t, "Dark Synth-pop, Male Vocals, Driving Bass, 115bpm", got.StylePrompt)
	assert.Equal(t, "[Verse 1]\nStreetlights hum a minor key\n\n[Chorus]\nNeon rain, neon rain", got.Lyrics)
}

func TestParseLyricsFallbacks(t *testing.T) {
	got, err := ParseLyrics("title: lowercase works\nmusical blueprint: Lo-fi, 80bpm\nno tags here")
	require.NoError(t, err)
	assert.Equal(t, "lowercase works", got.Title)
	assert.Equal(t, "Lo-fi, 80bpm", got.StylePrompt)
	assert.Equal(t, DefaultLyrics, got.Lyrics)

	got, err = ParseLyrics("[Verse]\nonly lyrics")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, got.Title)
	assert.Equal(t, DefaultStylePrompt, got.StylePrompt)
	assert.Equal(t, "[Verse]\nonly lyrics", got.Lyrics)
}

func TestParseLyricsUnrecognisedTextBecomesLyrics(t *testing.T) {
	got, err := ParseLyrics("  just some free verse\nwith no markers  ")
	require.NoError(t, err)
	assert.Equal(t, DefaultTitle, got.Title)
	assert.Equal(t, DefaultStylePrompt, got.StylePrompt)
	assert.Equal(t, "just some free verse\nwith no markers", got.Lyrics)
}

func TestParseLyricsEmpty(t *testing.T) {
	_, err := ParseLyrics(" \n\t")
	require.Error(t, err)
	assert.Equal(t, xerrors.CodeBackendResponse, xerrors.CodeOf(err))
}
