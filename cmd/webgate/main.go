// Command webgate runs the gateway: it loads a configuration file, preloads
// static resources, and drives the reactor's poll loop until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/procbridge/webgate/internal/config"
	"github.com/procbridge/webgate/internal/gateway"
	"github.com/procbridge/webgate/internal/reactor"
	"github.com/procbridge/webgate/internal/resources"
	"github.com/procbridge/webgate/pkg/admin"
	"github.com/procbridge/webgate/pkg/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "webgate <config-path>",
		Short: "Bridge browser WebSocket clients to locally spawned child processes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0])
		},
		SilenceUsage: true,
	}
}

func run(ctx context.Context, configPath string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	res, err := resources.Build(cfg)
	if err != nil {
		return err
	}

	collector := metrics.New(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AdminAddr != "" {
		admSrv := admin.New(cfg.AdminAddr)
		go func() {
			if err := admSrv.ListenAndServe(); err != nil {
				logger.Error("admin: server failed", "err", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = admSrv.Shutdown(shutdownCtx)
		}()
	}

	listener, err := gateway.NewListener(cfg.Address, cfg, res, collector, logger)
	if err != nil {
		return fmt.Errorf("webgate: could not bind %s: %w", cfg.Address, err)
	}

	logger.Info("webgate: running", "address", cfg.Address)
	return reactor.New(listener, logger).Run(ctx)
}
