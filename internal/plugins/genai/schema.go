package genai

func str(desc string) map[string]any {
	return map[string]any{"type": "STRING", "description": desc}
}

func num(desc string) map[string]any {
	return map[string]any{"type": "NUMBER", "description": desc}
}

var analysisSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"theme":    str("Main theme and message of the lyrics."),
		"mood":     str("Emotional tone of the song."),
		"imagery":  str("Use of imagery and metaphor."),
		"critique": str("Constructive critique."),
		"bias_check": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"is_biased": map[string]any{"type": "BOOLEAN", "description": "True when potential bias is found."},
				"reasoning": str("Why bias was or was not found."),
			},
			"required": []string{"is_biased", "reasoning"},
		},
		"suggestion": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"section":        str("Header of the revised section, e.g. [Chorus]."),
				"revised_lyrics": str("Full text of the revised section."),
			},
			"required": []string{"section", "revised_lyrics"},
		},
	},
	"required": []string{"theme", "mood", "imagery", "critique", "bias_check", "suggestion"},
}

var evaluationSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"overallScore": num("Overall quality, 0-100."),
		"lyrical": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"rhymeConsistency":   num("Rhyme scheme consistency, 0-100."),
				"emotionalCoherence": num("Emotional coherence, 0-100."),
				"originality":        num("Originality, 0-100."),
				"clarity":            num("Clarity, 0-100."),
			},
			"required": []string{"rhymeConsistency", "emotionalCoherence", "originality", "clarity"},
		},
		"musical": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"melodicInterest":     num("Melodic interest, 0-100."),
				"harmonicQuality":     num("Harmonic quality, 0-100."),
				"rhythmicConsistency": num("Rhythmic consistency, 0-100."),
				"structureQuality":    num("Structure and arrangement, 0-100."),
			},
			"required": []string{"melodicInterest", "harmonicQuality", "rhythmicConsistency", "structureQuality"},
		},
		"feedback":     map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
		"improvements": map[string]any{"type": "ARRAY", "items": map[string]any{"type": "STRING"}},
	},
	"required": []string{"overallScore", "lyrical", "musical", "feedback", "improvements"},
}
