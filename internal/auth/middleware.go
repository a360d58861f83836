package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// MiddlewareConfig maps HTTP methods to the permissions they require; "*"
// covers methods without an entry.
type MiddlewareConfig struct {
	RequiredPermissions map[string][]string
	AuditEvent          string
}

// DefaultPermissions lets reads through with songs:read and everything else with songs:write.
func DefaultPermissions() map[string][]string {
	return map[string][]string{
		http.MethodGet: {PermissionRead},
		"*":            {PermissionWrite},
	}
}

// Middleware authenticates and authorizes each request and audit-logs it.
func (s *Service) Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			subject, err := s.AuthenticateRequest(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				s.deny(w, r, http.StatusUnauthorized, err, "")
				return
			}
			perms := cfg.RequiredPermissions[r.Method]
			if len(perms) == 0 {
				perms = cfg.RequiredPermissions["*"]
			}
			if err := subject.Authorize(perms...); err != nil {
				s.deny(w, r, http.StatusForbidden, err, subject.Name)
				return
			}

			start := time.Now()
			aw := &auditWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(aw, r.WithContext(WithSubject(r.Context(), subject)))
			event := cfg.AuditEvent
			if event == "" {
				event = r.URL.Path
			}
			s.audit.Info("api_request",
				"event", event,
				"method", r.Method,
				"path", r.URL.Path,
				"status", aw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"subject", subject.Name,
			)
		})
	}
}

// RequirePermission wraps a single handler with an extra permission check.
func RequirePermission(permission string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := SubjectFromContext(r.Context())
		if subject != nil && !subject.Has(permission) {
			writeError(w, http.StatusForbidden, ErrPermissionDenied)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Service) deny(w http.ResponseWriter, r *http.Request, status int, err error, subject string) {
	writeError(w, status, err)
	s.audit.Warn("access_denied",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"subject", subject,
	)
}

func writeError(w http.ResponseWriter, status int, err error) {
	code := "UNAUTHORIZED"
	if errors.Is(err, ErrPermissionDenied) {
		code = "FORBIDDEN"
	}
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="songforge"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": err.Error()})
}

type auditWriter struct {
	http.ResponseWriter
	status int
}

func (w *auditWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
