package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/spaghettifunk/anima-assets/engine"
	"github.com/spaghettifunk/anima-assets/engine/core"
	"github.com/spaghettifunk/anima-assets/testbed"
)

func newWatchCommand(flags *globalFlags) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep every project resource loaded and reload it on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			cfg.Assets.Watch = true
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Metrics.Enabled = metricsAddr != ""
				cfg.Metrics.Address = metricsAddr
			}

			game := testbed.NewTestGame(&engine.ApplicationConfig{})
			e, err := flags.newEngine(cfg, game.Game, nil)
			if err != nil {
				return err
			}
			defer e.Shutdown()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Metrics.Enabled {
				srv := serveMetrics(e, cfg.Metrics.Address)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			pterm.Info.Printfln("Watching %s, press Ctrl+C to stop", e.Assets().Root())
			if err := e.Run(ctx); err != nil {
				return err
			}
			c := game.Counters()
			pterm.Success.Printfln("Stopped after %d loads, %d failures and %d reloads", c.Loaded, c.Failed, c.Evicted)
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func serveMetrics(e *engine.Engine, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			core.LogError("metrics server on %s stopped: %s", addr, err)
		}
	}()
	core.LogInfo("Serving metrics on http://%s/metrics", addr)
	return srv
}
