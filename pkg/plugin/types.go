package plugin

import (
	"fmt"
	"strings"
	"time"
)

// CapabilityType is the category of generation or analysis a plugin serves.
type CapabilityType string

const (
	// TypeLyrics plugins write a title, style prompt and lyrics.
	TypeLyrics CapabilityType = "lyrics"
	// TypeMidi plugins produce a base64 encoded MIDI sketch.
	TypeMidi CapabilityType = "midi"
	// TypeImage plugins render and edit cover art.
	TypeImage CapabilityType = "image"
	// TypeAnalysis plugins critique lyrics and suggest a revision.
	TypeAnalysis CapabilityType = "analysis"
	// TypeEvaluation plugins score a finished song.
	TypeEvaluation CapabilityType = "evaluation"
)

var capabilityOrder = []CapabilityType{TypeLyrics, TypeMidi, TypeImage, TypeAnalysis, TypeEvaluation}

// CapabilityTypes returns every capability type in display order.
func CapabilityTypes() []CapabilityType {
	out := make([]CapabilityType, len(capabilityOrder))
	copy(out, capabilityOrder)
	return out
}

// Valid reports whether t is one of the known capability types.
func (t CapabilityType) Valid() bool {
	for _, known := range capabilityOrder {
		if t == known {
			return true
		}
	}
	return false
}

// ParseCapabilityType converts user input into a CapabilityType.
func ParseCapabilityType(raw string) (CapabilityType, error) {
	t := CapabilityType(strings.ToLower(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown capability type %q", raw)
	}
	return t, nil
}

// Identity is the static description of a plugin implementation.
type Identity struct {
	ID             string            `json:"id" yaml:"id"`
	Name           string            `json:"name" yaml:"name"`
	Version        string            `json:"version" yaml:"version"`
	Description    string            `json:"description" yaml:"description"`
	RequiredConfig []string          `json:"requiredConfig" yaml:"requiredConfig"`
	OptionalConfig map[string]string `json:"optionalConfig,omitempty" yaml:"optionalConfig"`
}

// Clone returns a deep copy so callers cannot mutate a plugin's identity.
func (i Identity) Clone() Identity {
	dup := i
	if i.RequiredConfig != nil {
		dup.RequiredConfig = append([]string(nil), i.RequiredConfig...)
	}
	if i.OptionalConfig != nil {
		dup.OptionalConfig = make(map[string]string, len(i.OptionalConfig))
		for k, v := range i.OptionalConfig {
			dup.OptionalConfig[k] = v
		}
	}
	return dup
}

// Entry is one registration held by the Registry.
type Entry struct {
	ID           string         `json:"id"`
	Type         CapabilityType `json:"type"`
	Plugin       Plugin         `json:"-"`
	Active       bool           `json:"active"`
	RegisteredAt time.Time      `json:"registeredAt"`
}

// Summary is a point-in-time view of the registry.
type Summary struct {
	Total  int                    `json:"total"`
	ByType map[CapabilityType]int `json:"byType"`
	// Active maps each type to its active entry id, or "" when none is active.
	Active map[CapabilityType]string `json:"active"`
}
