package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"SongForge/internal/auth"
	"SongForge/pkg/logger"
)

// Config is the full runtime configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Plugins  PluginsConfig  `json:"plugins"`
	Studio   StudioConfig   `json:"studio"`
	Jobs     JobsConfig     `json:"jobs"`
	Auth     AuthConfig     `json:"auth"`
	Alerting AlertingConfig `json:"alerting"`
	Logging  logger.Config  `json:"logging"`
	Runtime  RuntimeConfig  `json:"runtime"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Address         string    `json:"address" validate:"required"`
	MetricsAddress  string    `json:"metrics_address"`
	ShutdownTimeout Duration  `json:"shutdown_timeout"`
	RateLimit       RateLimit `json:"rate_limit"`
}

// RateLimit is a per-client token bucket. Zero RPS disables limiting.
type RateLimit struct {
	RPS   float64 `json:"rps" validate:"gte=0"`
	Burst int     `json:"burst" validate:"gte=0"`
}

// PluginsConfig points at the plugin manifest and preset overrides.
type PluginsConfig struct {
	Manifest string `json:"manifest"`
	Presets  string `json:"presets"`
	// Offline registers the offline plugin under every capability before the
	// manifest is applied. It is implied when no manifest is configured.
	Offline bool `json:"offline"`
}

// StudioConfig tunes song generation.
type StudioConfig struct {
	OperationTimeout Duration `json:"operation_timeout"`
}

// JobsConfig selects the job store and queue.
type JobsConfig struct {
	Workers    int         `json:"workers" validate:"gte=1,lte=64"`
	MaxRetries int         `json:"max_retries" validate:"gte=1,lte=10"`
	Store      StoreConfig `json:"store"`
	Queue      QueueConfig `json:"queue"`
	// OfflineFallback completes jobs that will not be retried with an
	// offline draft instead of failing them.
	OfflineFallback bool `json:"offline_fallback"`
}

// StoreConfig selects the job store backend.
type StoreConfig struct {
	Driver       string   `json:"driver" validate:"oneof=memory mysql"`
	DSN          string   `json:"dsn" validate:"required_if=Driver mysql"`
	MaxOpenConns int      `json:"max_open_conns"`
	MaxIdleConns int      `json:"max_idle_conns"`
	ConnLifetime Duration `json:"conn_max_lifetime"`
}

// QueueConfig selects the job queue backend.
type QueueConfig struct {
	Driver    string   `json:"driver" validate:"oneof=memory redis rabbitmq"`
	Name      string   `json:"name"`
	Size      int      `json:"size"`
	Address   string   `json:"address" validate:"required_if=Driver redis"`
	Password  string   `json:"password"`
	DB        int      `json:"db"`
	BlockWait Duration `json:"block_wait"`
	URL       string   `json:"url" validate:"required_if=Driver rabbitmq"`
	Prefetch  int      `json:"prefetch"`
	Durable   bool     `json:"durable"`
}

// AuthConfig lists static API tokens. No tokens disables authentication.
type AuthConfig struct {
	Tokens []auth.TokenConfig `json:"tokens" validate:"dive"`
}

// AlertingConfig configures failure notifications.
type AlertingConfig struct {
	Log            bool              `json:"log"`
	WebhookURL     string            `json:"webhook_url" validate:"omitempty,url"`
	WebhookHeaders map[string]string `json:"webhook_headers"`
}

// RuntimeConfig holds paths relative to the config file.
type RuntimeConfig struct {
	DataDir string `json:"data_dir"`
}

// Duration reads "30s" style strings or integer seconds from JSON.
type Duration struct {
	time.Duration
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		d.Duration = time.Duration(v * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		d.Duration = parsed
	case nil:
		d.Duration = 0
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Load parses the JSON file at path. An empty path yields the defaults.
// Environment overrides are applied after the file.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookupEnv func(string) (string, bool)) (*Config, error) {
	var cfg Config
	baseDir := "."
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		baseDir = filepath.Dir(path)
	}
	if err := cfg.applyEnv(lookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a validated configuration with defaults only.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(".")
	return &cfg
}

var validate = validator.New()

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		c.Server.ShutdownTimeout.Duration = 15 * time.Second
	}
	if c.Server.RateLimit.RPS > 0 && c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.Burst = int(c.Server.RateLimit.RPS) + 1
	}
	if c.Studio.OperationTimeout.Duration <= 0 {
		c.Studio.OperationTimeout.Duration = 2 * time.Minute
	}
	if c.Jobs.Workers == 0 {
		c.Jobs.Workers = 2
	}
	if c.Jobs.MaxRetries == 0 {
		c.Jobs.MaxRetries = 3
	}
	if c.Jobs.Store.Driver == "" {
		c.Jobs.Store.Driver = "memory"
	}
	if c.Jobs.Queue.Driver == "" {
		c.Jobs.Queue.Driver = "memory"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	c.Plugins.Manifest = resolvePath(baseDir, c.Plugins.Manifest)
	c.Plugins.Presets = resolvePath(baseDir, c.Plugins.Presets)
	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else {
		c.Runtime.DataDir = resolvePath(baseDir, c.Runtime.DataDir)
	}
}

func resolvePath(baseDir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}

// applyEnv overrides fields from SONGFORGE_* variables.
func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("SONGFORGE_SERVER_ADDRESS", &c.Server.Address)
	str("SONGFORGE_METRICS_ADDRESS", &c.Server.MetricsAddress)
	str("SONGFORGE_PLUGIN_MANIFEST", &c.Plugins.Manifest)
	str("SONGFORGE_PRESETS", &c.Plugins.Presets)
	str("SONGFORGE_JOB_STORE", &c.Jobs.Store.Driver)
	str("SONGFORGE_MYSQL_DSN", &c.Jobs.Store.DSN)
	str("SONGFORGE_QUEUE", &c.Jobs.Queue.Driver)
	str("SONGFORGE_REDIS_ADDRESS", &c.Jobs.Queue.Address)
	str("SONGFORGE_RABBITMQ_URL", &c.Jobs.Queue.URL)
	str("SONGFORGE_ALERT_WEBHOOK", &c.Alerting.WebhookURL)
	str("SONGFORGE_LOG_LEVEL", &c.Logging.Level)

	if v, ok := lookupEnv("SONGFORGE_OFFLINE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SONGFORGE_OFFLINE: %w", err)
		}
		c.Plugins.Offline = b
	}
	if v, ok := lookupEnv("SONGFORGE_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SONGFORGE_WORKERS: %w", err)
		}
		c.Jobs.Workers = n
	}
	if v, ok := lookupEnv("SONGFORGE_API_TOKEN"); ok && strings.TrimSpace(v) != "" {
		c.Auth.Tokens = append(c.Auth.Tokens, auth.TokenConfig{Name: "env", Token: strings.TrimSpace(v), Permissions: []string{"*"}})
	}
	return nil
}
