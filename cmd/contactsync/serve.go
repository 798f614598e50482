package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"contactsync/internal/platform/config"
	"contactsync/internal/platform/health"
	"contactsync/internal/syncer"
	httptransport "contactsync/internal/transport/http"
	"contactsync/pkg/platform/middleware/request"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the sync trigger endpoint",
		Long: `Serve GET|POST /sync for the OpenHIM core along with health probes and
Prometheus metrics. Each request runs one full sync cycle; overlapping
requests are rejected with 409.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.loadConfig()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), root, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides CONTACTSYNC_ADDR)")
	return cmd
}

func serve(ctx context.Context, root *rootOptions, cfg config.Config) error {
	log := newLogger(root.logLevel)
	log.Info("initializing contactsync",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"upsert_mode", cfg.Sync.UpsertMode,
	)

	a, err := newApp(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("failed to release resources", "error", err)
		}
	}()

	healthHandler := health.New("contactsync")
	for name, check := range a.checks {
		healthHandler.RegisterCheck(name, check)
	}

	handler := httptransport.NewHandler(serviceFunc(a.sync), cfg.Server.MediatorURN, log,
		httptransport.WithCycleObserver(func(out *syncer.Outcome) {
			healthHandler.RecordCycle(health.CycleSummary{
				CycleID:    out.CycleID,
				Status:     string(out.Status),
				FinishedAt: out.FinishedAt,
			})
		}),
	)
	router := httptransport.NewRouter(httptransport.Routes{
		Sync:    handler,
		Health:  healthHandler,
		Metrics: promhttp.Handler(),
		Latency: request.NewMetrics(prometheus.DefaultRegisterer),
	}, log)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
			return err
		}
		return nil
	case <-quit:
	}

	log.Info("shutting down server gracefully")
	// An in-flight cycle keeps its request open; give it a bounded grace period.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		return err
	}
	log.Info("server stopped")
	return nil
}

// serviceFunc adapts a function to httptransport.SyncService.
type serviceFunc func(ctx context.Context) (*syncer.Outcome, error)

func (f serviceFunc) Sync(ctx context.Context) (*syncer.Outcome, error) {
	return f(ctx)
}
