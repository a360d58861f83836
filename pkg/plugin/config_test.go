package plugin

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
plugins:
  - kind: fake
    id: primary
    configEnv:
      API_KEY: SONGFORGE_TEST_KEY
    config:
      textModel: tuned
    capabilities: [lyrics, midi]
    activate: [lyrics, midi]
  - kind: fake
    id: standby
    config:
      API_KEY: literal
    capabilities: [lyrics]
  - kind: fake
    id: disabled
    enabled: false
`

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog()
	require.NoError(t, c.Register("fake", func() Plugin { return midiOnly{newFake("fake-default")} }))
	return c
}

func writeManifest(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugins.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestManifestApply(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, sampleManifest))
	require.NoError(t, err)
	require.Len(t, m.Plugins, 3)
	assert.False(t, m.Plugins[2].IsEnabled())

	env := map[string]string{"SONGFORGE_TEST_KEY": "from-env"}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	reg := quietRegistry()
	require.NoError(t, m.Apply(context.Background(), reg, testCatalog(t), lookup))

	s := reg.Summary()
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, "primary", s.Active[TypeLyrics])
	assert.Equal(t, "primary/midi", s.Active[TypeMidi])
	assert.True(t, reg.IsReady("primary"))
	assert.True(t, reg.IsReady("standby"))

	e, ok := reg.Get("primary")
	require.True(t, ok)
	fake := e.Plugin.(midiOnly)
	assert.Equal(t, "from-env", fake.Setting("API_KEY"))
	assert.Equal(t, "tuned", fake.Setting("textModel"))

	shared, _ := reg.Get("primary/midi")
	assert.Equal(t, e.Plugin, shared.Plugin)
}

func TestManifestApplyKeepsUninitializedPlugins(t *testing.T) {
	m := Manifest{Plugins: []ManifestPlugin{{Kind: "fake", Activate: []CapabilityType{TypeLyrics}}}}
	require.NoError(t, m.Validate())

	reg := quietRegistry()
	require.NoError(t, m.Apply(context.Background(), reg, testCatalog(t), func(string) (string, bool) { return "", false }))

	assert.Equal(t, 2, reg.Summary().Total)
	assert.False(t, reg.IsReady("fake-default"))
	active, ok := reg.Active(TypeLyrics)
	require.True(t, ok)
	assert.Equal(t, "fake-default", active.ID)
	_, ok = reg.Get("fake-default/midi")
	assert.True(t, ok)
}

func TestManifestValidate(t *testing.T) {
	cases := map[string]Manifest{
		"missing kind": {Plugins: []ManifestPlugin{{ID: "x"}}},
		"bad type":     {Plugins: []ManifestPlugin{{Kind: "fake", Capabilities: []CapabilityType{"video"}}}},
		"activate unregistered": {Plugins: []ManifestPlugin{{
			Kind: "fake", Capabilities: []CapabilityType{TypeLyrics}, Activate: []CapabilityType{TypeMidi},
		}}},
		"duplicate id": {Plugins: []ManifestPlugin{{Kind: "fake", ID: "a"}, {Kind: "fake", ID: "a"}}},
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, m.Validate())
		})
	}
}

func TestManifestUnknownKind(t *testing.T) {
	m := Manifest{Plugins: []ManifestPlugin{{Kind: "nope"}}}
	err := m.Apply(context.Background(), quietRegistry(), testCatalog(t), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known: fake")
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	c := testCatalog(t)
	assert.Error(t, c.Register("fake", func() Plugin { return newFake("again") }))
	assert.Error(t, c.Register(" ", func() Plugin { return newFake("blank") }))
	assert.Error(t, c.Register("nil", nil))
	assert.Equal(t, []string{"fake"}, c.Kinds())
}
