package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/emailclean/internal/config"
	"github.com/JonMunkholm/emailclean/internal/core"
	"github.com/JonMunkholm/emailclean/internal/history"
	"github.com/JonMunkholm/emailclean/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload page and JSON API",
		Long: `Serve the upload page and the JSON API.

Uploaded files are cleaned in memory. Results stay downloadable for
RUN_RETENTION; run summaries are recorded in the HISTORY_DRIVER store.

Examples:
  emailclean serve
  emailclean serve --host 127.0.0.1 --port 9090
  HISTORY_DRIVER=sqlite HISTORY_DSN=runs.db emailclean serve`,
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *a.cfg
			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Server.Host = host
			}
			if flags.Changed("port") {
				cfg.Server.Port = port
			}
			if flags.Changed("host") || flags.Changed("port") {
				if err := cfg.Validate(); err != nil {
					return usageError{err}
				}
			}
			return serve(cmd.Context(), &cfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Interface to bind to (default SERVER_HOST)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default SERVER_PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"history_driver", cfg.Store.Driver,
		"run_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	store, err := history.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.PoolConfig())
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	service, err := core.NewService(store, cfg)
	if err != nil {
		return err
	}
	slog.Info("rules loaded", "patterns", service.Catalogue().Len(), "name_rule", cfg.Rules.NameRule)

	server := web.NewServer(service, cfg)

	// Background jobs stop before the server drains.
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	go service.StartJanitor(jobCtx, core.DefaultJanitorInterval)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownDone := make(chan error, 1)
	go func() {
		<-sigCtx.Done()
		slog.Info("shutting down...")

		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for runs to complete", "active", status.Active)
			if err := service.WaitForRuns(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			} else {
				slog.Info("all runs completed")
			}
		}

		shutdownDone <- server.Shutdown(shutdownCtx)
	}()

	if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	if err := <-shutdownDone; err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
