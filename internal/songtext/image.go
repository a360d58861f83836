package songtext

import (
	"encoding/base64"
	"strings"

	xerrors "SongForge/internal/errors"
)

// DecodeImage splits a base64 data URL into its MIME type and raw bytes.
func DecodeImage(dataURL string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, "", xerrors.New(xerrors.CodeInvalidArgument, "image is not a base64 data URL")
	}
	mime := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "invalid Base64 data for the image")
	}
	return raw, mime, nil
}
