package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"SongForge/internal/config"
	xerrors "SongForge/internal/errors"
	"SongForge/internal/observability/alerting"
	"SongForge/internal/observability/metrics"
	"SongForge/internal/plugins/genai"
	"SongForge/internal/plugins/offline"
	"SongForge/internal/presets"
	mysqlstore "SongForge/internal/storage/mysql"
	"SongForge/internal/studio"
	"SongForge/internal/task"
	"SongForge/pkg/logger"
	"SongForge/pkg/plugin"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg       *config.Config
	metrics   *metrics.Metrics
	registry  *plugin.Registry
	studio    *studio.Studio
	db        *sql.DB
	snapshots *mysqlstore.SnapshotStore
	log       *slog.Logger
}

func newCatalog() (*plugin.Catalog, error) {
	c := plugin.NewCatalog()
	factories := map[string]plugin.Factory{
		"gemini":  func() plugin.Plugin { return genai.NewGemini() },
		"openai":  func() plugin.Plugin { return genai.NewOpenAI() },
		"offline": func() plugin.Plugin { return offline.New() },
	}
	for kind, f := range factories {
		if err := c.Register(kind, f); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// offlineManifest registers the offline plugin under every capability and
// activates it.
func offlineManifest() plugin.Manifest {
	return plugin.Manifest{Plugins: []plugin.ManifestPlugin{{
		Kind:     "offline",
		Activate: plugin.CapabilityTypes(),
	}}}
}

// newApp opens storage, fills the registry and builds the studio. With
// offlineOnly the manifest is ignored.
func newApp(ctx context.Context, cfg *config.Config, offlineOnly bool) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New(), log: logger.Named("songforge")}

	if cfg.Jobs.Store.Driver == "mysql" {
		db, err := mysqlstore.Open(ctx, mysqlstore.Config{
			DSN:             cfg.Jobs.Store.DSN,
			MaxOpenConns:    cfg.Jobs.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Jobs.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Jobs.Store.ConnLifetime.Duration,
		})
		if err != nil {
			return nil, err
		}
		if err := mysqlstore.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.snapshots = mysqlstore.NewSnapshotStore(db)
	}

	a.registry = plugin.NewRegistry(plugin.WithObserver(a.observe))
	if err := a.loadPlugins(ctx, offlineOnly); err != nil {
		a.Close()
		return nil, err
	}

	catalog := presets.Default()
	if cfg.Plugins.Presets != "" {
		loaded, err := presets.LoadFile(cfg.Plugins.Presets)
		if err != nil {
			a.Close()
			return nil, err
		}
		catalog = loaded
	}
	a.studio = studio.New(a.registry,
		studio.WithOperationTimeout(cfg.Studio.OperationTimeout.Duration),
		studio.WithPresets(catalog),
		studio.WithMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) loadPlugins(ctx context.Context, offlineOnly bool) error {
	catalog, err := newCatalog()
	if err != nil {
		return err
	}
	manifestPath := a.cfg.Plugins.Manifest
	if offlineOnly || a.cfg.Plugins.Offline || manifestPath == "" {
		if err := offlineManifest().Apply(ctx, a.registry, catalog, os.LookupEnv); err != nil {
			return err
		}
	}
	if offlineOnly || manifestPath == "" {
		return nil
	}
	m, err := plugin.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	return m.Apply(ctx, a.registry, catalog, os.LookupEnv)
}

// observe mirrors registry changes into metrics and the snapshot table.
func (a *app) observe(s plugin.Summary) {
	a.metrics.SetRegistrySummary(s)
	if a.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.snapshots.Record(ctx, s); err != nil {
		a.log.Warn("record registry snapshot", slog.Any("error", err))
	}
}

// jobs builds the job service and processor from configuration.
func (a *app) jobs(ctx context.Context) (*task.Service, *task.Processor, error) {
	cfg := a.cfg.Jobs

	var store task.Store
	switch cfg.Store.Driver {
	case "memory":
		store = task.NewMemoryStore()
	case "mysql":
		s, err := task.NewMySQLStore(a.db)
		if err != nil {
			return nil, nil, err
		}
		store = s
	default:
		return nil, nil, fmt.Errorf("unknown job store driver %q", cfg.Store.Driver)
	}

	var queue task.Queue
	switch cfg.Queue.Driver {
	case "memory":
		size := cfg.Queue.Size
		if size <= 0 {
			size = 1024
		}
		queue = task.NewMemoryQueue(size)
	case "redis":
		q, err := task.NewRedisQueue(ctx, task.RedisQueueConfig{
			Address:   cfg.Queue.Address,
			Password:  cfg.Queue.Password,
			DB:        cfg.Queue.DB,
			Queue:     cfg.Queue.Name,
			BlockWait: cfg.Queue.BlockWait.Duration,
		})
		if err != nil {
			return nil, nil, err
		}
		queue = q
	case "rabbitmq":
		q, err := task.NewRabbitMQQueue(task.RabbitMQConfig{
			URL:      cfg.Queue.URL,
			Queue:    cfg.Queue.Name,
			Prefetch: cfg.Queue.Prefetch,
			Durable:  cfg.Queue.Durable,
		})
		if err != nil {
			return nil, nil, err
		}
		queue = q
	default:
		return nil, nil, fmt.Errorf("unknown job queue driver %q", cfg.Queue.Driver)
	}

	opts := []task.ProcessorOption{
		task.WithWorkerCount(cfg.Workers),
		task.WithProcessorLogger(logger.Named("jobs")),
		task.WithProcessorMetrics(a.metrics),
	}
	if d := a.alerts(); d != nil {
		opts = append(opts, task.WithAlertDispatcher(d))
	}
	if cfg.OfflineFallback {
		fallback, err := a.offlineStudio(ctx)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, task.WithRecoveryHandler(&task.FallbackRecovery{
			Generator: fallback,
			Codes: []xerrors.Code{
				xerrors.CodeBackendFailure, xerrors.CodeBackendResponse, xerrors.CodeTimeout,
				xerrors.CodeNoActivePlugin, xerrors.CodePluginNotReady,
			},
		}))
	}

	svc := task.NewService(store, queue, cfg.MaxRetries)
	proc := task.NewProcessor(a.studio, store, queue, queue, opts...)
	return svc, proc, nil
}

// offlineStudio is a studio over a private registry holding only the offline
// plugin, used for degraded job completion.
func (a *app) offlineStudio(ctx context.Context) (*studio.Studio, error) {
	catalog, err := newCatalog()
	if err != nil {
		return nil, err
	}
	reg := plugin.NewRegistry()
	if err := offlineManifest().Apply(ctx, reg, catalog, os.LookupEnv); err != nil {
		return nil, err
	}
	return studio.New(reg, studio.WithPresets(a.studio.Presets()), studio.WithMetrics(a.metrics)), nil
}

func (a *app) alerts() alerting.Dispatcher {
	var notifiers []alerting.Notifier
	if a.cfg.Alerting.Log {
		notifiers = append(notifiers, &alerting.LogNotifier{})
	}
	if a.cfg.Alerting.WebhookURL != "" {
		notifiers = append(notifiers, &alerting.WebhookNotifier{
			URL:     a.cfg.Alerting.WebhookURL,
			Headers: a.cfg.Alerting.WebhookHeaders,
		})
	}
	if len(notifiers) == 0 {
		return nil
	}
	return alerting.NewFanout(notifiers...)
}

// Close disposes plugins and closes the database.
func (a *app) Close() error {
	var errs []error
	if a.registry != nil {
		errs = append(errs, a.registry.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
