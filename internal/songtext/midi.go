package songtext

import (
	"encoding/base64"
	"regexp"
	"strings"

	xerrors "SongForge/internal/errors"
)

var (
	codeFenceLine = regexp.MustCompile("(?m)^\\s*```.*$")
	nonBase64     = regexp.MustCompile(`[^A-Za-z0-9+/=]`)
)

// NormalizeMidi turns model output into a decodable base64 MIDI payload.
// Markdown fence lines and characters outside the base64 alphabet are dropped
// and the result is padded to a multiple of four.
func NormalizeMidi(text string) (string, error) {
	cleaned := nonBase64.ReplaceAllString(codeFenceLine.ReplaceAllString(text, ""), "")
	if cleaned == "" {
		return "", xerrors.New(xerrors.CodeBackendResponse,
			"MIDI generation failed: output contained no valid Base64 data")
	}
	if pad := (4 - len(cleaned)%4) % 4; pad > 0 {
		cleaned += strings.Repeat("=", pad)
	}
	if _, err := base64.StdEncoding.DecodeString(cleaned); err != nil {
		return "", xerrors.Wrap(xerrors.CodeBackendResponse, err, "model returned invalid Base64 data for the MIDI file")
	}
	return cleaned, nil
}

// DecodeMidi returns the raw MIDI bytes of a normalized payload.
func DecodeMidi(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "invalid Base64 data for the MIDI file")
	}
	return raw, nil
}
