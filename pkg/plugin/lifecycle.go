package plugin

import (
	"fmt"
	"strings"
	"sync"

	xerrors "SongForge/internal/errors"
)

// Lifecycle implements the identity, configuration and readiness bookkeeping
// shared by plugin implementations. Embed it, call Resolve and MarkReady from
// Initialize and Reset from Dispose.
type Lifecycle struct {
	identity Identity

	mu     sync.RWMutex
	config map[string]string
	ready  bool
}

// NewLifecycle returns bookkeeping for a plugin with the given identity.
func NewLifecycle(identity Identity) *Lifecycle {
	return &Lifecycle{identity: identity.Clone()}
}

// Identity returns a copy of the plugin identity.
func (l *Lifecycle) Identity() Identity {
	return l.identity.Clone()
}

// IsReady reports whether the plugin is configured and not disposed.
func (l *Lifecycle) IsReady() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ready
}

// Resolve validates raw against the identity and returns the effective
// configuration: required keys, plus optional keys with defaults applied.
// Keys the identity does not declare are dropped.
func (l *Lifecycle) Resolve(raw map[string]string) (map[string]string, error) {
	resolved := make(map[string]string, len(l.identity.RequiredConfig)+len(l.identity.OptionalConfig))
	for _, key := range l.identity.RequiredConfig {
		value := strings.TrimSpace(raw[key])
		if value == "" {
			return nil, xerrors.New(xerrors.CodePluginConfig,
				fmt.Sprintf("%s is required for plugin %s", key, l.identity.ID),
				xerrors.WithMetadata("plugin_id", l.identity.ID),
				xerrors.WithMetadata("key", key))
		}
		resolved[key] = value
	}
	for key, def := range l.identity.OptionalConfig {
		if value := strings.TrimSpace(raw[key]); value != "" {
			resolved[key] = value
			continue
		}
		resolved[key] = def
	}
	return resolved, nil
}

// MarkReady stores the resolved configuration and flips the plugin to ready.
func (l *Lifecycle) MarkReady(resolved map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config = resolved
	l.ready = true
}

// Reset clears configuration and readiness. It returns whether the plugin was ready.
func (l *Lifecycle) Reset() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	was := l.ready
	l.ready = false
	l.config = nil
	return was
}

// Ensure fails with a not-ready error unless the plugin is ready.
func (l *Lifecycle) Ensure() error {
	if !l.IsReady() {
		return NotReadyError(l.identity.ID)
	}
	return nil
}

// Setting returns one resolved configuration value.
func (l *Lifecycle) Setting(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config[key]
}

// Settings returns a copy of the resolved configuration.
func (l *Lifecycle) Settings() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.config))
	for k, v := range l.config {
		out[k] = v
	}
	return out
}
