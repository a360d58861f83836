package studio

import (
	"time"

	"SongForge/internal/songtext"
	"SongForge/pkg/plugin"
)

// FacetState tracks one generated part of a song.
type FacetState string

const (
	FacetPending   FacetState = "pending"
	FacetRunning   FacetState = "running"
	FacetSucceeded FacetState = "succeeded"
	FacetFailed    FacetState = "failed"
)

// Facet is the status of one generated part and the plugin that produced it.
type Facet struct {
	State    FacetState `json:"state"`
	PluginID string     `json:"pluginId,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Facets groups the generation status of every part.
type Facets struct {
	Lyrics Facet `json:"lyrics"`
	Midi   Facet `json:"midi"`
	Image  Facet `json:"image"`
}

// Song is everything generated for one request.
type Song struct {
	Title       string                    `json:"title"`
	Lyrics      string                    `json:"lyrics"`
	StylePrompt string                    `json:"stylePrompt"`
	Midi        string                    `json:"midi,omitempty"`
	Image       string                    `json:"image,omitempty"`
	Params      plugin.LyricsParams       `json:"params"`
	PresetID    string                    `json:"presetId,omitempty"`
	ImageParams *plugin.ImageParams       `json:"imageParams,omitempty"`
	Analysis    *plugin.AnalysisResult    `json:"analysis,omitempty"`
	Evaluation  *plugin.EvaluationMetrics `json:"evaluation,omitempty"`
	Facets      Facets                    `json:"facets"`
	CreatedAt   time.Time                 `json:"createdAt"`
	UpdatedAt   time.Time                 `json:"updatedAt"`
}

// Complete reports whether lyrics, MIDI and cover art are all present.
func (s *Song) Complete() bool {
	return s.Title != "" && s.Lyrics != "" && s.Midi != "" && s.Image != ""
}

// MidiFilename is the download name of the MIDI sketch.
func (s *Song) MidiFilename() string {
	return songtext.MidiFilename(s.Title)
}

// ImageFilename is the download name of the cover art.
func (s *Song) ImageFilename() string {
	return songtext.ImageFilename(s.Title)
}

// Sections splits the lyrics into tagged sections.
func (s *Song) Sections() []songtext.Section {
	return songtext.StructureLyrics(s.Lyrics)
}

func (s *Song) imageParams() plugin.ImageParams {
	return plugin.ImageParams{
		Title:       s.Title,
		LyricTheme:  s.Params.LyricTheme,
		Lyrics:      s.Lyrics,
		StylePrompt: s.StylePrompt,
	}
}
