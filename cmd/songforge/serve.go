package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"SongForge/internal/api"
	"SongForge/internal/auth"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var offlineOnly bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the job processor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags, offlineOnly)
		},
	}
	cmd.Flags().BoolVar(&offlineOnly, "offline", false, "Serve only the offline plugin and ignore the manifest")
	return cmd
}

func runServe(ctx context.Context, flags *rootFlags, offlineOnly bool) error {
	cfg := flags.cfg
	a, err := newApp(ctx, cfg, offlineOnly)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn("shutdown incomplete", slog.Any("error", err))
		}
	}()

	svc, proc, err := a.jobs(ctx)
	if err != nil {
		return err
	}
	defer svc.Close()

	opts := []api.Option{
		api.WithJobs(svc),
		api.WithMetrics(a.metrics),
		api.WithAuth(auth.NewService(cfg.Auth.Tokens)),
		api.WithRateLimit(cfg.Server.RateLimit.RPS, cfg.Server.RateLimit.Burst),
		api.WithShutdownTimeout(cfg.Server.ShutdownTimeout.Duration),
	}
	if a.snapshots != nil {
		opts = append(opts, api.WithHistory(a.snapshots))
	}
	server := api.NewServer(cfg.Server.Address, a.studio, opts...)

	summary := a.registry.Summary()
	a.log.Info("songforge starting",
		slog.String("addr", cfg.Server.Address),
		slog.Int("plugins", summary.Total),
		slog.Any("active", summary.Active),
		slog.String("job_store", cfg.Jobs.Store.Driver),
		slog.String("job_queue", cfg.Jobs.Queue.Driver),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	g.Go(func() error { return proc.Start(gctx) })
	if cfg.Server.MetricsAddress != "" {
		g.Go(func() error { return a.metrics.StartServer(gctx, cfg.Server.MetricsAddress) })
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Info("songforge stopped")
	return nil
}
