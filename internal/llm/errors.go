package llm

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	xerrors "SongForge/internal/errors"
)

const maxErrorBody = 2048

// StatusError converts a non-2xx provider response into a backend error.
// Rate limits and server errors stay retryable; other client errors do not.
func StatusError(provider string, resp *http.Response, message string) error {
	if message == "" {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message = strings.TrimSpace(string(body))
	}
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
	return xerrors.New(xerrors.CodeBackendFailure,
		fmt.Sprintf("%s returned status %d: %s", provider, resp.StatusCode, message),
		xerrors.WithRetryable(retryable),
		xerrors.WithMetadata("provider", provider),
		xerrors.WithMetadata("status", strconv.Itoa(resp.StatusCode)),
	)
}

// TransportError wraps a failed round trip.
func TransportError(provider string, err error) error {
	return xerrors.Wrap(xerrors.CodeBackendFailure, err, fmt.Sprintf("request to %s failed", provider),
		xerrors.WithMetadata("provider", provider))
}

// EmptyResponseError reports a response without usable content.
func EmptyResponseError(provider, what string) error {
	return xerrors.New(xerrors.CodeBackendResponse, fmt.Sprintf("%s returned an empty %s", provider, what),
		xerrors.WithMetadata("provider", provider))
}
