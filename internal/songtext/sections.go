package songtext

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	xerrors "SongForge/internal/errors"
)

var (
	nextSection = regexp.MustCompile(`\n\s*\[`)
	sectionTag  = regexp.MustCompile(`\[.*?\]`)
)

// Section is one tagged block of lyrics such as "[Chorus]" and its lines.
type Section struct {
	Tag   string   `json:"tag"`
	Lines []string `json:"lines"`
}

// ApplySuggestion replaces the body of section in lyrics with revised. The
// header is matched case-insensitively; a section named without brackets also
// matches a bracketed header.
func ApplySuggestion(lyrics, section, revised string) (string, error) {
	target := strings.TrimSpace(section)
	if !strings.HasPrefix(target, "[") {
		target = "[" + target
	}
	if !strings.HasSuffix(target, "]") {
		target += "]"
	}

	strict := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(target) + `\s*\n`)
	if out, ok := replaceSectionBody(lyrics, strict, revised); ok {
		return out, nil
	}

	bare := strings.TrimSpace(strings.NewReplacer("[", "", "]", "").Replace(section))
	if bare == "" {
		return "", sectionNotFound(section)
	}
	loose := regexp.MustCompile(`(?i)\[?` + regexp.QuoteMeta(bare) + `\]?\s*\n`)
	if out, ok := replaceSectionBody(lyrics, loose, revised); ok {
		return out, nil
	}
	return "", sectionNotFound(section)
}

func sectionNotFound(section string) error {
	return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("could not find section %q", section),
		xerrors.WithMetadata("section", section))
}

func replaceSectionBody(lyrics string, header *regexp.Regexp, revised string) (string, bool) {
	loc := header.FindStringIndex(lyrics)
	if loc == nil {
		return "", false
	}
	bodyStart := loc[1]
	bodyEnd := len(lyrics)
	if next := nextSection.FindStringIndex(lyrics[bodyStart:]); next != nil {
		bodyEnd = bodyStart + next[0]
	}
	rest := strings.TrimLeftFunc(lyrics[bodyEnd:], unicode.IsSpace)
	return strings.TrimSpace(lyrics[:bodyStart] + strings.TrimSpace(revised) + "\n\n" + rest), true
}

// StructureLyrics splits lyrics on bracketed tags. Text before the first tag
// becomes an untagged section. Blank lines are dropped.
func StructureLyrics(lyrics string) []Section {
	if strings.TrimSpace(lyrics) == "" {
		return nil
	}
	var out []Section
	tags := sectionTag.FindAllStringIndex(lyrics, -1)
	if len(tags) == 0 || strings.TrimSpace(lyrics[:tags[0][0]]) != "" {
		end := len(lyrics)
		if len(tags) > 0 {
			end = tags[0][0]
		}
		out = append(out, Section{Tag: "", Lines: nonBlankLines(lyrics[:end])})
	}
	for i, tag := range tags {
		end := len(lyrics)
		if i+1 < len(tags) {
			end = tags[i+1][0]
		}
		out = append(out, Section{
			Tag:   strings.TrimSpace(lyrics[tag[0]:tag[1]]),
			Lines: nonBlankLines(lyrics[tag[1]:end]),
		})
	}
	return out
}

func nonBlankLines(body string) []string {
	lines := []string{}
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
