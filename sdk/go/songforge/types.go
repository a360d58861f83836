package songforge

import (
	"time"

	"SongForge/pkg/plugin"
)

// Sentiment is the anger/sadness/joy mix used to steer lyrics, each 0-100.
type Sentiment struct {
	Anger   int `json:"anger"`
	Sadness int `json:"sadness"`
	Joy     int `json:"joy"`
}

// SongRequest asks for a song from a preset or explicit parameters.
type SongRequest struct {
	PresetID  string               `json:"presetId,omitempty"`
	Params    *plugin.LyricsParams `json:"params,omitempty"`
	Sentiment *Sentiment           `json:"sentiment,omitempty"`
}

// Facet reports the state of one generated part.
type Facet struct {
	State    string `json:"state"`
	PluginID string `json:"pluginId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Song is a generated song as returned by the server.
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
	Facets      map[string]Facet          `json:"facets"`
	CreatedAt   time.Time                 `json:"createdAt"`
	UpdatedAt   time.Time                 `json:"updatedAt"`
}

// PluginInfo is one registry entry.
type PluginInfo struct {
	ID           string                  `json:"id"`
	Type         plugin.CapabilityType   `json:"type"`
	Active       bool                    `json:"active"`
	Ready        bool                    `json:"ready"`
	RegisteredAt time.Time               `json:"registeredAt"`
	Identity     plugin.Identity         `json:"identity"`
	Provides     []plugin.CapabilityType `json:"provides"`
}

// Preset is a named starting point for generation.
type Preset struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Genre      string `json:"genre"`
	Style      string `json:"style"`
	Language   string `json:"language"`
	BPM        int    `json:"bpm"`
	LyricTheme string `json:"lyricTheme"`
}

// JobSubmission creates an asynchronous generation job. A non-empty ID makes
// the call idempotent.
type JobSubmission struct {
	ID       string            `json:"id,omitempty"`
	Song     SongRequest       `json:"song"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Job is the state of an asynchronous generation.
type Job struct {
	ID         string            `json:"id"`
	Request    SongRequest       `json:"request"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Status     string            `json:"status"`
	Attempts   int               `json:"attempts"`
	MaxRetries int               `json:"maxRetries"`
	LastError  string            `json:"lastError,omitempty"`
	ErrorCode  string            `json:"errorCode,omitempty"`
	Result     *Song             `json:"result,omitempty"`
	CreatedAt  int64             `json:"createdAt"`
	UpdatedAt  int64             `json:"updatedAt"`
}

// JobStats counts jobs per status.
type JobStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// JobFilter narrows ListJobs and JobStats.
type JobFilter struct {
	Statuses []string
	Limit    int
	Offset   int
	Query    string
}

type songEnvelope struct {
	Song *Song `json:"song"`
}
