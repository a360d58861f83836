package llm

import "context"

// MIME types a text model can be asked to respond with.
const (
	MIMEText = "text/plain"
	MIMEJSON = "application/json"
)

// TextRequest is a single-turn prompt sent to a text model.
type TextRequest struct {
	// Model overrides the client's default model when set.
	Model  string
	Prompt string
	// ResponseMIME asks for plain text or JSON output. Empty means provider default.
	ResponseMIME string
	// Schema optionally constrains JSON output. It uses the OpenAPI subset
	// understood by Gemini (types in upper case).
	Schema map[string]any
	// Temperature is optional; nil keeps the provider default.
	Temperature *float64
}

// ImageRequest asks an image model for one or more renders of a prompt.
type ImageRequest struct {
	Model       string
	Prompt      string
	Count       int
	AspectRatio string
	MIMEType    string
}

// Image is one generated image, base64 encoded.
type Image struct {
	Base64   string
	MIMEType string
}

// TextModel generates text from a prompt.
type TextModel interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ImageModel generates images from a prompt.
type ImageModel interface {
	GenerateImages(ctx context.Context, req ImageRequest) ([]Image, error)
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 {
	return &v
}
