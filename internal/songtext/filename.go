package songtext

import (
	"regexp"
	"strings"
)

const maxFilenameLen = 50

var (
	filenameDisallowed = regexp.MustCompile(`[^a-z0-9\s\p{Zs}-]`)
	filenameSpaces     = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// SanitizeFilename lowercases name, drops anything but letters, digits,
// spaces and dashes, joins words with underscores and caps the length.
func SanitizeFilename(name string) string {
	out := filenameDisallowed.ReplaceAllString(strings.ToLower(name), "")
	out = filenameSpaces.ReplaceAllString(out, "_")
	if len(out) > maxFilenameLen {
		out = out[:maxFilenameLen]
	}
	return out
}

// MidiFilename is the download name for a song's MIDI sketch. Titles that
// sanitize to nothing fall back to song_output.mid.
func MidiFilename(title string) string {
	if name := SanitizeFilename(title); name != "" {
		return name + ".mid"
	}
	return "song_output.mid"
}

// ImageFilename is the download name for a song's cover art.
func ImageFilename(title string) string {
	if name := SanitizeFilename(title); name != "" {
		return name + ".png"
	}
	return "cover_art.png"
}
