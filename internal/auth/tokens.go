package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"strings"

	"SongForge/pkg/logger"
)

// Service authenticates requests against a fixed token list. With no tokens
// it is disabled and every request passes.
type Service struct {
	tokens []staticToken
	audit  *slog.Logger
}

type staticToken struct {
	digest  [sha256.Size]byte
	subject Subject
}

// NewService builds a Service. Tokens without permissions get read access.
func NewService(tokens []TokenConfig) *Service {
	s := &Service{audit: logger.Audit()}
	for _, t := range tokens {
		if strings.TrimSpace(t.Token) == "" {
			continue
		}
		perms := t.Permissions
		if len(perms) == 0 {
			perms = []string{PermissionRead}
		}
		s.tokens = append(s.tokens, staticToken{
			digest:  sha256.Sum256([]byte(t.Token)),
			subject: Subject{Name: t.Name, Permissions: append([]string(nil), perms...)},
		})
	}
	return s
}

// Enabled reports whether any token is configured.
func (s *Service) Enabled() bool {
	return s != nil && len(s.tokens) > 0
}

// AuthenticateRequest resolves an Authorization header value.
func (s *Service) AuthenticateRequest(_ context.Context, authorization string) (*Subject, error) {
	token, ok := strings.CutPrefix(strings.TrimSpace(authorization), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return nil, ErrMissingToken
	}
	digest := sha256.Sum256([]byte(token))
	for _, t := range s.tokens {
		if subtle.ConstantTimeCompare(digest[:], t.digest[:]) == 1 {
			subject := t.subject
			subject.permissionsSet = nil
			return &subject, nil
		}
	}
	return nil, ErrInvalidToken
}
