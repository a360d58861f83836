package presets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"SongForge/internal/songtext"
	"SongForge/pkg/plugin"
)

// Preset is a named set of song parameters.
type Preset struct {
	ID               string `json:"id" validate:"required"`
	Name             string `json:"name" validate:"required"`
	Genre            string `json:"genre" validate:"required"`
	Style            string `json:"style"`
	Language         string `json:"language" validate:"required"`
	Structure        string `json:"structure"`
	Key              string `json:"key"`
	BPM              int    `json:"bpm" validate:"gte=40,lte=240"`
	LyricTheme       string `json:"lyricTheme" validate:"required"`
	SentimentAnger   int    `json:"sentimentAnger" validate:"gte=0,lte=100"`
	SentimentSadness int    `json:"sentimentSadness" validate:"gte=0,lte=100"`
	SentimentJoy     int    `json:"sentimentJoy" validate:"gte=0,lte=100"`
	Creativity       int    `json:"creativity" validate:"gte=0,lte=100"`
}

// Params converts the preset into lyrics generation parameters.
func (p Preset) Params() plugin.LyricsParams {
	return plugin.LyricsParams{
		Genre:          p.Genre,
		Style:          p.Style,
		Structure:      p.Structure,
		Key:            p.Key,
		BPM:            p.BPM,
		LyricTheme:     p.LyricTheme,
		Language:       p.Language,
		LyricSentiment: songtext.SentimentDescriptor(p.SentimentAnger, p.SentimentSadness, p.SentimentJoy),
		Creativity:     p.Creativity,
	}
}

var builtin = []Preset{
	{
		ID: "midnight-drive-synthwave", Name: "Midnight Drive Synthwave",
		Genre: "80s Synthwave", Style: "Kavinsky, The Midnight, Chromatics", Language: "English",
		Structure: "ABABCB", Key: "A-Minor", BPM: 125,
		LyricTheme:     "nostalgic memories of a lost love on a rainy city night",
		SentimentAnger: 10, SentimentSadness: 60, SentimentJoy: 30, Creativity: 60,
	},
	{
		ID: "indie-dreamscape", Name: "Indie Dreamscape",
		Genre: "Dream Pop", Style: "Beach House, Alvvays, Cocteau Twins", Language: "English",
		Structure: "Verse-Chorus", Key: "F-Major", BPM: 95,
		LyricTheme:     "the hazy feeling of a summer afternoon daydream",
		SentimentAnger: 0, SentimentSadness: 25, SentimentJoy: 75, Creativity: 80,
	},
	{
		ID: "hyperpop-glitch", Name: "Hyperpop Glitch",
		Genre: "Hyperpop", Style: "100 gecs, Charli XCX, AG Cook", Language: "English",
		Structure: "Verse-Chorus-Bridge", Key: "C#-Major", BPM: 160,
		LyricTheme:     "sensory overload in the digital age, online identity crisis",
		SentimentAnger: 40, SentimentSadness: 10, SentimentJoy: 50, Creativity: 100,
	},
	{
		ID: "city-nights-rb", Name: "City Nights R&B",
		Genre: "R&B Pop", Style: "The Weeknd, SZA, Frank Ocean", Language: "English",
		Structure: "ABABCB", Key: "G-Minor", BPM: 100,
		LyricTheme:     "late-night confessions and temptations in a neon-lit metropolis",
		SentimentAnger: 20, SentimentSadness: 50, SentimentJoy: 30, Creativity: 70,
	},
}

// Builtin returns a copy of the bundled presets.
func Builtin() []Preset {
	out := make([]Preset, len(builtin))
	copy(out, builtin)
	return out
}

// Catalog is an ordered, id-addressable preset list.
type Catalog struct {
	items []Preset
}

// NewCatalog returns a catalog holding items in order.
func NewCatalog(items []Preset) *Catalog {
	return &Catalog{items: append([]Preset(nil), items...)}
}

// Default returns a catalog of the built-in presets.
func Default() *Catalog {
	return NewCatalog(builtin)
}

// LoadFile reads a JSON array of presets and merges it over the built-ins:
// presets with a known id replace the built-in, new ids are appended.
func LoadFile(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("preset file path cannot be empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve preset path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open preset file: %w", err)
	}
	defer file.Close()

	var entries []Preset
	if err := json.NewDecoder(file).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode preset file: %w", err)
	}

	c := Default()
	for i, p := range entries {
		if err := plugin.ValidateParams(p); err != nil {
			return nil, fmt.Errorf("preset %d (%s): %w", i, p.ID, err)
		}
		c.put(p)
	}
	return c, nil
}

func (c *Catalog) put(p Preset) {
	for i := range c.items {
		if c.items[i].ID == p.ID {
			c.items[i] = p
			return
		}
	}
	c.items = append(c.items, p)
}

// List returns every preset in order.
func (c *Catalog) List() []Preset {
	if c == nil {
		return nil
	}
	return append([]Preset(nil), c.items...)
}

// Find looks a preset up by id, case-insensitively.
func (c *Catalog) Find(id string) (Preset, bool) {
	if c == nil {
		return Preset{}, false
	}
	id = strings.TrimSpace(id)
	for _, p := range c.items {
		if strings.EqualFold(p.ID, id) {
			return p, true
		}
	}
	return Preset{}, false
}

// Match returns the preset whose parameters equal params, ignoring the
// sentiment and creativity settings.
func (c *Catalog) Match(params plugin.LyricsParams) (Preset, bool) {
	if c == nil {
		return Preset{}, false
	}
	for _, p := range c.items {
		if p.Genre == params.Genre && p.Style == params.Style && p.Language == params.Language &&
			p.Structure == params.Structure && p.Key == params.Key && p.BPM == params.BPM &&
			p.LyricTheme == params.LyricTheme {
			return p, true
		}
	}
	return Preset{}, false
}
