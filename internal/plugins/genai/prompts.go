package genai

import (
	"fmt"
	"strings"

	"SongForge/pkg/plugin"
)

func lyricsPrompt(p plugin.LyricsParams) string {
	var b strings.Builder
	b.WriteString("You write songs for a pop song generator. Produce three things:\n")
	b.WriteString("1. A fitting song title.\n")
	b.WriteString("2. A Suno Prompt: a short comma-separated list of English tags for genre, style, instruments, mood and tempo.\n")
	b.WriteString("3. The complete lyrics.\n\n")
	b.WriteString("Use exactly this layout and nothing else:\n\n")
	b.WriteString("Title: <title in the requested language>\n\n")
	b.WriteString("Suno Prompt: <tags>\n\n")
	b.WriteString("[Verse 1]\n<lyrics>\n\n[Chorus]\n<lyrics>\n\n")
	b.WriteString("Section labels such as [Verse 1] and [Chorus] stay in English; the title and lyrics use the requested language.\n\n")
	b.WriteString("Song specification:\n")
	fmt.Fprintf(&b, "- Language: %s\n", p.Language)
	fmt.Fprintf(&b, "- Genre: %s\n", p.Genre)
	fmt.Fprintf(&b, "- Style influences: %s\n", p.Style)
	fmt.Fprintf(&b, "- Structure: %s\n", p.Structure)
	fmt.Fprintf(&b, "- Key / mood: %s\n", p.Key)
	fmt.Fprintf(&b, "- BPM: %d\n", p.BPM)
	fmt.Fprintf(&b, "- Lyrical theme: %s\n", p.LyricTheme)
	fmt.Fprintf(&b, "- Sentiment profile: %s\n", p.LyricSentiment)
	fmt.Fprintf(&b, "- Creativity (0 formulaic, 100 experimental): %d%%\n", p.Creativity)
	return b.String()
}

func midiPrompt(p plugin.MidiParams) string {
	var b strings.Builder
	b.WriteString("Compose a multi-track MIDI demo of about 30 seconds and return the file as one base64 string.\n\n")
	fmt.Fprintf(&b, "- Genre: %s\n- Style: %s\n- Key: %s\n- BPM: %d\n- Vibe: %s\n\n", p.Genre, p.Style, p.Key, p.BPM, p.StylePrompt)
	b.WriteString("Rules: output only base64 characters; the decoded file must begin with the MThd header; ")
	b.WriteString("no JSON, no markdown fences, no commentary.")
	return b.String()
}

func coverPrompt(p plugin.ImageParams) string {
	var b strings.Builder
	b.WriteString("Design a vibrant, high-contrast cyberpunk album cover mixing futuristic digital painting with hyper-realism.\n")
	b.WriteString("It must reflect the mood and imagery of the lyrics below.\n\n")
	fmt.Fprintf(&b, "Title: %q\nTheme: %q\nMusical style: %q\n\nLyrics:\n---\n%s\n---\n\n", p.Title, p.LyricTheme, p.StylePrompt, p.Lyrics)
	fmt.Fprintf(&b, "Use neon glow, chrome reflections and abstract light patterns. Render the title %q legibly in a stylised neon font. ", p.Title)
	b.WriteString("Centered composition, square 1:1 aspect ratio.")
	return b.String()
}

func editPromptFor(p plugin.ImageParams, edit string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Re-imagine the cyberpunk album cover for the song %q (theme %q, style %q).\n", p.Title, p.LyricTheme, p.StylePrompt)
	fmt.Fprintf(&b, "The cover illustrates these lyrics:\n---\n%s\n---\n\n", p.Lyrics)
	fmt.Fprintf(&b, "Apply this change to the original concept: %q.\n", edit)
	fmt.Fprintf(&b, "Keep the title %q legible in a neon font and keep the cyberpunk look. Square 1:1 aspect ratio.", p.Title)
	return b.String()
}

func analysisPrompt(lyrics, title, theme string) string {
	var b strings.Builder
	b.WriteString("Act as a hit-making music producer and assess these lyrics.\n\n")
	fmt.Fprintf(&b, "Title: %q\nTheme: %q\nLyrics:\n---\n%s\n---\n\n", title, theme, lyrics)
	b.WriteString("Describe theme, mood and strongest imagery, critique flow, rhyme and emotional impact, ")
	b.WriteString("and check for racial, gender or cultural stereotypes.\n")
	b.WriteString("Then pick the one section that most needs work and rewrite it in full. ")
	b.WriteString("The suggestion's section must equal the header used in the lyrics, e.g. \"[Chorus]\".\n")
	b.WriteString("Answer with a JSON object only.")
	return b.String()
}

func evaluationPrompt(lyrics, title string, p plugin.LyricsParams) string {
	var b strings.Builder
	b.WriteString("Act as a music critic and songwriter. Score this song from 0 to 100 on each dimension and give actionable feedback.\n\n")
	fmt.Fprintf(&b, "Title: %q\nGenre: %s\nStyle: %s\nTheme: %s\n\nLyrics:\n---\n%s\n---\n\n", title, p.Genre, p.Style, p.LyricTheme, lyrics)
	b.WriteString("Weigh commercial appeal, artistic merit and technical quality. Answer with a JSON object only.")
	return b.String()
}
