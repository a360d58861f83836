// Package config loads the SongForge JSON configuration, fills defaults,
// applies SONGFORGE_* environment overrides and validates the result.
package config
