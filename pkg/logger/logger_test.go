package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNamedAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")

	Named("registry").Info("plugin registered", "plugin_id", "gemini-default")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "registry", line["component"])
	assert.Equal(t, "gemini-default", line["plugin_id"])
}

func TestInitWritesAuditFile(t *testing.T) {
	dir := t.TempDir()
	auditPath := filepath.Join(dir, "audit", "audit.log")
	logPath := filepath.Join(dir, "app.log")

	require.NoError(t, Init(Config{
		Level:       "info",
		Format:      "json",
		OutputPaths: []string{logPath},
		Audit:       AuditConfig{Enabled: true, Path: auditPath},
	}))
	t.Cleanup(func() { _ = Sync() })

	Audit().Info("plugin_activated", "plugin_id", "alt-default")
	L().Debug("dropped at info level")
	require.NoError(t, Sync())

	raw, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "plugin_activated")

	raw, err = os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "dropped at info level")
}

func TestInitRejectsAuditWithoutPath(t *testing.T) {
	err := Init(Config{Audit: AuditConfig{Enabled: true}})
	assert.Error(t, err)
}
