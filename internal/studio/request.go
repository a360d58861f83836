package studio

import (
	"fmt"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/presets"
	"SongForge/internal/songtext"
	"SongForge/pkg/plugin"
)

// Sentiment is the anger/sadness/joy mix, each 0-100.
type Sentiment struct {
	Anger   int `json:"anger" validate:"gte=0,lte=100"`
	Sadness int `json:"sadness" validate:"gte=0,lte=100"`
	Joy     int `json:"joy" validate:"gte=0,lte=100"`
}

// SongRequest asks for a song either from explicit parameters or from a
// preset. Sentiment, when set, overrides the parameters' sentiment profile.
type SongRequest struct {
	PresetID  string               `json:"presetId,omitempty"`
	Params    *plugin.LyricsParams `json:"params,omitempty"`
	Sentiment *Sentiment           `json:"sentiment,omitempty"`
}

// resolveParams turns a request into validated lyrics parameters.
func resolveParams(catalog *presets.Catalog, req SongRequest) (plugin.LyricsParams, error) {
	var params plugin.LyricsParams
	switch {
	case req.Params != nil:
		params = *req.Params
	case req.PresetID != "":
		preset, ok := catalog.Find(req.PresetID)
		if !ok {
			return params, xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("preset %q not found", req.PresetID))
		}
		params = preset.Params()
	default:
		return params, xerrors.New(xerrors.CodeInvalidArgument, "either presetId or params is required")
	}
	if req.Sentiment != nil {
		if err := plugin.ValidateParams(req.Sentiment); err != nil {
			return params, err
		}
		params.LyricSentiment = songtext.SentimentDescriptor(req.Sentiment.Anger, req.Sentiment.Sadness, req.Sentiment.Joy)
	}
	if err := plugin.ValidateParams(params); err != nil {
		return params, err
	}
	return params, nil
}
