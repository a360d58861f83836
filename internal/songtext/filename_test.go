package songtext

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "neon_rain_-_remix", SanitizeFilename("Neon Rain - Remix!"))
	assert.Equal(t, "caf_nights", SanitizeFilename("Café   Nights"))
	assert.Len(t, SanitizeFilename(strings.Repeat("a", 80)), 50)
}

func TestDownloadFilenames(t *testing.T) {
	assert.Equal(t, "midnight_drive.mid", MidiFilename("Midnight Drive"))
	assert.Equal(t, "song_output.mid", MidiFilename(""))
	assert.Equal(t, "cover_art.png", ImageFilename(""))
	assert.Equal(t, "song_output.mid", MidiFilename("!!!"))
	assert.Equal(t, "cover_art.png", ImageFilename("???"))
	assert.Equal(t, "midnight_drive.png", ImageFilename("Midnight Drive"))
}

func TestSentimentDescriptor(t *testing.T) {
	assert.Equal(t, "low", SentimentLevel(29))
	assert.Equal(t, "medium", SentimentLevel(30))
	assert.Equal(t, "high", SentimentLevel(70))
	assert.Equal(t, "low-anger (10%), medium-sadness (60%), medium-joy (30%)", SentimentDescriptor(10, 60, 30))
}
