package offline

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"SongForge/pkg/plugin"
)

func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return "the night"
	}
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

func titleFor(theme string) string {
	words := strings.Fields(firstWords(theme, 3))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = strings.TrimRight(string(r), ",.;:")
	}
	return strings.Join(words, " ")
}

func stylePromptFor(p plugin.LyricsParams) string {
	parts := []string{p.Genre}
	if p.Style != "" {
		parts = append(parts, p.Style)
	}
	if p.Key != "" {
		parts = append(parts, p.Key)
	}
	parts = append(parts, fmt.Sprintf("%dbpm", p.BPM))
	return strings.Join(parts, ", ")
}

func sectionsFor(structure string) []string {
	switch strings.ToUpper(strings.TrimSpace(structure)) {
	case "ABABCB":
		return []string{"Verse 1", "Chorus", "Verse 2", "Chorus", "Bridge", "Chorus"}
	case "AABA":
		return []string{"Verse 1", "Verse 2", "Bridge", "Verse 3"}
	case "VERSE-CHORUS-BRIDGE":
		return []string{"Verse 1", "Chorus", "Verse 2", "Chorus", "Bridge", "Chorus"}
	default:
		return []string{"Verse 1", "Chorus", "Verse 2", "Chorus"}
	}
}

func linesFor(section, theme string) []string {
	hook := firstWords(theme, 4)
	switch {
	case strings.HasPrefix(section, "Chorus"):
		return []string{
			fmt.Sprintf("Oh, %s", hook),
			"We keep on running through the light",
			fmt.Sprintf("Oh, %s", hook),
			"Holding on with all our might",
		}
	case strings.HasPrefix(section, "Bridge"):
		return []string{"Slow it down, let the echo fade", fmt.Sprintf("Every road leads back to %s", hook)}
	default:
		return []string{
			fmt.Sprintf("I remember %s", hook),
			"Streetlights painting stories on the ground",
			"Every heartbeat louder than the sound",
		}
	}
}

func moodFor(lyrics string) string {
	lower := strings.ToLower(lyrics)
	switch {
	case strings.Contains(lower, "rain") || strings.Contains(lower, "lost") || strings.Contains(lower, "fade"):
		return "bittersweet"
	case strings.Contains(lower, "light") || strings.Contains(lower, "summer"):
		return "uplifting"
	default:
		return "reflective"
	}
}

func scoreLyrics(lyrics, title string, params plugin.LyricsParams) plugin.EvaluationMetrics {
	var lines []string
	for _, l := range strings.Split(lyrics, "\n") {
		l = strings.TrimSpace(l)
		if l != "" && !strings.HasPrefix(l, "[") {
			lines = append(lines, l)
		}
	}
	rhymes, unique := 0, map[string]struct{}{}
	for i, l := range lines {
		unique[strings.ToLower(l)] = struct{}{}
		if i > 0 && tail(l) != "" && tail(l) == tail(lines[i-1]) {
			rhymes++
		}
	}
	ratio := func(a, b int) float64 {
		if b == 0 {
			return 0
		}
		return float64(a) / float64(b)
	}
	rhyme := 40 + 60*ratio(rhymes, len(lines)-1)
	originality := 30 + 70*ratio(len(unique), len(lines))
	clarity := 90 - math.Min(40, float64(avgWords(lines)))
	coherence := 60.0
	if title != "" && strings.Contains(strings.ToLower(lyrics), strings.ToLower(firstWords(params.LyricTheme, 1))) {
		coherence = 80
	}
	tempo := 100 - math.Min(60, math.Abs(float64(params.BPM)-110)/2)
	structure := 55 + 5*math.Min(8, float64(strings.Count(lyrics, "[")))

	m := plugin.EvaluationMetrics{
		Lyrical: plugin.LyricalMetrics{
			RhymeConsistency:   math.Round(rhyme),
			EmotionalCoherence: coherence,
			Originality:        math.Round(originality),
			Clarity:            math.Round(clarity),
		},
		Musical: plugin.MusicalMetrics{
			MelodicInterest:     math.Round(50 + float64(params.Creativity)/4),
			HarmonicQuality:     70,
			RhythmicConsistency: math.Round(tempo),
			StructureQuality:    structure,
		},
		Feedback:     []string{fmt.Sprintf("%d lyric lines across %d sections", len(lines), strings.Count(lyrics, "["))},
		Improvements: []string{},
	}
	m.OverallScore = math.Round(float64(m.LyricalAverage()+m.MusicalAverage()) / 2)
	if rhyme < 60 {
		m.Improvements = append(m.Improvements, "Tighten the rhyme scheme between adjacent lines.")
	}
	if originality < 70 {
		m.Improvements = append(m.Improvements, "Reduce repeated lines outside the chorus.")
	}
	return m.Clamp()
}

func tail(line string) string {
	words := strings.Fields(strings.ToLower(line))
	if len(words) == 0 {
		return ""
	}
	w := strings.TrimFunc(words[len(words)-1], func(r rune) bool { return !unicode.IsLetter(r) })
	if len(w) > 3 {
		w = w[len(w)-3:]
	}
	return w
}

func avgWords(lines []string) int {
	if len(lines) == 0 {
		return 0
	}
	total := 0
	for _, l := range lines {
		total += len(strings.Fields(l))
	}
	return total / len(lines)
}
