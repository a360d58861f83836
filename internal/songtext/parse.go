package songtext

import (
	"regexp"
	"strings"

	xerrors "SongForge/internal/errors"
	"SongForge/pkg/plugin"
)

// Fallbacks used when a section is missing from the model output.
const (
	DefaultTitle       = "Untitled Pop Song"
	DefaultStylePrompt = "Pop, Melodic, 120bpm"
	DefaultLyrics      = "Lyrics not generated."
)

var (
	titlePattern       = regexp.MustCompile(`(?im)^Title:\s*(.*)$`)
	stylePromptPattern = regexp.MustCompile(`(?im)^(?:Suno Prompt|Musical Blueprint):\s*(.*)$`)
	lyricStartPattern  = regexp.MustCompile(`(?m)^\s*\[`)
)

// ParseLyrics splits a lyrics response into title, style prompt and lyrics.
// Missing sections fall back to defaults; when nothing is recognised the
// whole response is returned as lyrics.
func ParseLyrics(text string) (plugin.LyricsResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return plugin.LyricsResult{}, xerrors.New(xerrors.CodeBackendResponse, "received an empty response from the model")
	}

	result := plugin.LyricsResult{
		Title:       DefaultTitle,
		StylePrompt: DefaultStylePrompt,
		Lyrics:      DefaultLyrics,
	}
	if m := titlePattern.FindStringSubmatch(trimmed); m != nil {
		result.Title = strings.TrimSpace(m[1])
	}
	if m := stylePromptPattern.FindStringSubmatch(trimmed); m != nil {
		result.StylePrompt = strings.TrimSpace(m[1])
	}
	if loc := lyricStartPattern.FindStringIndex(trimmed); loc != nil {
		result.Lyrics = strings.TrimSpace(trimmed[loc[0]:])
	}

	if result.Title == DefaultTitle && result.StylePrompt == DefaultStylePrompt && result.Lyrics == DefaultLyrics {
		result.Lyrics = trimmed
	}
	return result, nil
}
