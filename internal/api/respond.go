package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	xerrors "SongForge/internal/errors"
	"SongForge/internal/task"
)

const maxBodyBytes = 8 << 20

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := xerrors.CodeOf(err)
	message := err.Error()
	if e, ok := xerrors.From(err); ok && e.Message() != "" {
		message = e.Message()
	}
	writeJSON(w, statusFor(code), errorBody{Code: string(code), Message: message})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code xerrors.Code) int {
	switch code {
	case xerrors.CodeNotFound, task.CodeJobNotFound:
		return http.StatusNotFound
	case xerrors.CodeConflict, task.CodeJobConflict:
		return http.StatusConflict
	case xerrors.CodeInvalidArgument, xerrors.CodePluginConfig, task.CodeJobValidation:
		return http.StatusBadRequest
	case xerrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case xerrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case xerrors.CodePluginNotReady, xerrors.CodeNoActivePlugin:
		return http.StatusServiceUnavailable
	case xerrors.CodeBackendFailure, xerrors.CodeBackendResponse:
		return http.StatusBadGateway
	case xerrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into dst. An empty body is an invalid argument.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return xerrors.New(xerrors.CodeInvalidArgument, "request body is empty")
		}
		return xerrors.Wrap(xerrors.CodeInvalidArgument, err, "malformed request body")
	}
	return nil
}
