package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingToken     = errors.New("missing bearer token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrPermissionDenied = errors.New("permission denied")
)

// Permissions understood by the API.
const (
	PermissionRead  = "songs:read"
	PermissionWrite = "songs:write"
	PermissionAdmin = "plugins:admin"
)

// Subject is the caller identified by a token.
type Subject struct {
	Name        string
	Permissions []string

	permissionsSet map[string]struct{}
}

func (s *Subject) normalise() {
	if s == nil || s.permissionsSet != nil {
		return
	}
	s.permissionsSet = make(map[string]struct{}, len(s.Permissions))
	for _, p := range s.Permissions {
		s.permissionsSet[strings.TrimSpace(p)] = struct{}{}
	}
}

// Has reports whether the subject holds permission, or the "*" wildcard.
func (s *Subject) Has(permission string) bool {
	if s == nil {
		return false
	}
	s.normalise()
	if _, ok := s.permissionsSet["*"]; ok {
		return true
	}
	_, ok := s.permissionsSet[permission]
	return ok
}

// Authorize fails unless the subject holds every permission.
func (s *Subject) Authorize(permissions ...string) error {
	for _, p := range permissions {
		if !s.Has(p) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, p)
		}
	}
	return nil
}

// TokenConfig declares one static API token.
type TokenConfig struct {
	Name        string   `json:"name" validate:"required"`
	Token       string   `json:"token" validate:"required,min=16"`
	Permissions []string `json:"permissions"`
}
