package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rshade/ecolife/internal/api"
	"github.com/rshade/ecolife/internal/config"
	"github.com/rshade/ecolife/internal/logging"
	"github.com/rshade/ecolife/internal/metrics"
	"github.com/rshade/ecolife/internal/scheduler"
)

const schedulerStopTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	var (
		addr        string
		noScheduler bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the nightly refresh",
		Long: `Starts the HTTP/JSON API. Unless disabled, a cron job recomputes
statistics and re-runs the advisor for every known user on the configured
schedule (scheduler.spec, default "0 2 * * *"). Metrics are exposed at /metrics.`,
		Example: `  # Listen on a custom port without the scheduler
  ecolife serve --addr :9090 --no-scheduler`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.GetGlobalConfig()
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, addr, cfg.Scheduler.Enabled && !noScheduler)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not run the periodic refresh")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, addr string, withScheduler bool) error {
	log := logging.FromContext(ctx)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	tracker, cleanup, err := openTracker(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer cleanup()

	if withScheduler {
		sched, err := scheduler.New(ctx, tracker, cfg.Scheduler.Spec, cfg.Scheduler.Concurrency)
		if err != nil {
			return err
		}
		if err = sched.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), schedulerStopTimeout)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.Warn().Ctx(ctx).Err(err).Msg("scheduler did not stop cleanly")
			}
		}()
	}

	srv := api.NewServer(tracker, api.Options{AllowedOrigins: cfg.Server.AllowedOrigins, Metrics: m})
	return api.ListenAndServe(ctx, addr, srv.Handler())
}
