package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"SongForge/pkg/logger"
)

// Manifest declares which plugins to build at startup and how to wire them.
type Manifest struct {
	Plugins []ManifestPlugin `yaml:"plugins"`
}

// ManifestPlugin is the configuration block for one plugin instance.
type ManifestPlugin struct {
	Kind    string `yaml:"kind"`
	ID      string `yaml:"id"`
	Enabled *bool  `yaml:"enabled"`
	// Config holds literal configuration values.
	Config map[string]string `yaml:"config"`
	// ConfigEnv maps a configuration key to the environment variable holding it.
	ConfigEnv map[string]string `yaml:"configEnv"`
	// Capabilities limits the types the instance is registered under. Empty
	// means every capability the plugin implements.
	Capabilities []CapabilityType `yaml:"capabilities"`
	// Activate lists the types for which this instance becomes active.
	Activate []CapabilityType `yaml:"activate"`
}

// IsEnabled defaults to true when the field is omitted.
func (p ManifestPlugin) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// LoadManifest reads a YAML manifest.
func LoadManifest(path string) (Manifest, error) {
	var m Manifest
	if path == "" {
		return m, errors.New("manifest path cannot be empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return m, fmt.Errorf("read plugin manifest: %w", err)
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("unmarshal plugin manifest: %w", err)
	}
	return m, m.Validate()
}

// Validate ensures the manifest is internally consistent.
func (m Manifest) Validate() error {
	seen := make(map[string]struct{})
	for i, p := range m.Plugins {
		if p.Kind == "" {
			return fmt.Errorf("plugins[%d]: kind cannot be empty", i)
		}
		for _, t := range append(slices.Clone(p.Capabilities), p.Activate...) {
			if !t.Valid() {
				return fmt.Errorf("plugins[%d]: unknown capability type %q", i, t)
			}
		}
		for _, t := range p.Activate {
			if len(p.Capabilities) > 0 && !slices.Contains(p.Capabilities, t) {
				return fmt.Errorf("plugins[%d]: activates %s without registering it", i, t)
			}
		}
		if p.ID == "" || !p.IsEnabled() {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("plugins[%d]: duplicate id %s", i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// Apply builds every enabled plugin from catalog, initializes it and registers
// it under each of its capability types. The first type uses the base id, the
// others "<id>/<type>", so one instance backs several entries. A plugin whose
// Initialize fails is still registered, not ready, so it can be initialized
// later through the registry.
func (m Manifest) Apply(ctx context.Context, reg *Registry, catalog *Catalog, lookupEnv func(string) (string, bool)) error {
	if lookupEnv == nil {
		lookupEnv = os.LookupEnv
	}
	log := logger.Named("plugin-manifest")
	for _, block := range m.Plugins {
		if !block.IsEnabled() {
			continue
		}
		p, err := catalog.New(block.Kind)
		if err != nil {
			return err
		}
		baseID := block.ID
		if baseID == "" {
			baseID = p.Identity().ID
		}

		cfg := make(map[string]string, len(block.Config)+len(block.ConfigEnv))
		for k, v := range block.Config {
			cfg[k] = v
		}
		for k, env := range block.ConfigEnv {
			if v, ok := lookupEnv(env); ok {
				cfg[k] = v
			}
		}
		if err := p.Initialize(ctx, cfg); err != nil {
			log.Warn("plugin left uninitialized", slog.String("plugin_id", baseID), slog.Any("error", err))
		}

		types := block.Capabilities
		if len(types) == 0 {
			types = Capabilities(p)
		}
		for i, t := range types {
			entryID := baseID
			if i > 0 {
				entryID = baseID + "/" + string(t)
			}
			if err := reg.Register(t, p, slices.Contains(block.Activate, t), WithEntryID(entryID)); err != nil {
				return fmt.Errorf("register %s as %s: %w", entryID, t, err)
			}
		}
	}
	return nil
}
