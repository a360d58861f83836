package plugin

import (
	"fmt"

	xerrors "SongForge/internal/errors"
)

// Sentinels for errors.Is. Matching is by code, so any error carrying the same
// code matches regardless of message.
var (
	ErrNotReady  = xerrors.New(xerrors.CodePluginNotReady, "plugin not initialized")
	ErrConfig    = xerrors.New(xerrors.CodePluginConfig, "plugin configuration invalid")
	ErrNotFound  = xerrors.New(xerrors.CodeNotFound, "plugin not registered")
	ErrDuplicate = xerrors.New(xerrors.CodeConflict, "plugin already registered")
	ErrNoActive  = xerrors.New(xerrors.CodeNoActivePlugin, "no active plugin")
)

// NotReadyError is returned by capability operations invoked before Initialize.
func NotReadyError(id string) error {
	return xerrors.New(xerrors.CodePluginNotReady,
		fmt.Sprintf("plugin %s not initialized, call Initialize first", id),
		xerrors.WithMetadata("plugin_id", id))
}

func notFoundError(id string) error {
	return xerrors.New(xerrors.CodeNotFound, fmt.Sprintf("plugin %q not found", id),
		xerrors.WithMetadata("plugin_id", id))
}
