package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SongForge/internal/config"
	"SongForge/internal/studio"
)

func TestGenerateOfflineWritesArtifacts(t *testing.T) {
	ctx := context.Background()
	a, err := newApp(ctx, config.Default(), true)
	require.NoError(t, err)
	defer a.Close()

	dir := t.TempDir()
	var out bytes.Buffer
	gf := &generateFlags{outDir: dir, analyze: true, evaluate: true}
	require.NoError(t, runGenerate(ctx, a.studio, studio.SongRequest{PresetID: "indie-dreamscape"}, gf, &out))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, filepath.Ext(e.Name()))
	}
	assert.ElementsMatch(t, []string{".mid", ".png"}, names)

	text := out.String()
	assert.Contains(t, text, "Overall:")
	assert.Contains(t, text, "Critique:")
	assert.True(t, strings.Contains(text, "[Verse"), text)
}

func TestPluginsCommandPrintsOfflineRegistry(t *testing.T) {
	a, err := newApp(context.Background(), config.Default(), false)
	require.NoError(t, err)
	defer a.Close()

	var out bytes.Buffer
	require.NoError(t, printRegistry(&out, a.registry, false))
	assert.Contains(t, out.String(), "offline-default/midi")
	assert.Contains(t, out.String(), "5 plugins registered")

	out.Reset()
	require.NoError(t, printRegistry(&out, a.registry, true))
	assert.Contains(t, out.String(), `"total": 5`)
}

func TestManifestOverridesOfflineActivation(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "plugins.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
plugins:
  - kind: gemini
    configEnv:
      API_KEY: SONGFORGE_TEST_UNSET_GEMINI_KEY
    capabilities: [lyrics]
    activate: [lyrics]
`), 0o600))

	cfg := config.Default()
	cfg.Plugins.Manifest = manifest
	cfg.Plugins.Offline = true

	a, err := newApp(context.Background(), cfg, false)
	require.NoError(t, err)
	defer a.Close()

	s := a.registry.Summary()
	assert.Equal(t, "gemini-default", s.Active["lyrics"])
	assert.Equal(t, "offline-default/midi", s.Active["midi"])
	assert.False(t, a.registry.IsReady("gemini-default"))
}
