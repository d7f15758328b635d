package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/donaldgifford/catalog-scraper/internal/api"
	"github.com/donaldgifford/catalog-scraper/internal/engine"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server and scheduler",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	var schedOpts []engine.SchedulerOption
	if cfg.Schedule.LockTTL > 0 {
		schedOpts = append(schedOpts, engine.WithLockTTL(cfg.Schedule.LockTTL))
	}
	sched, err := engine.NewScheduler(a.engine, a.store, searches(cfg), a.log, schedOpts...)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	sched.RecoverStaleRuns(ctx)

	deps := api.Deps{
		Runner:   a.engine,
		Searches: sched,
		Version:  Version,
		Logger:   a.log,
	}
	if a.store != nil {
		deps.Items = a.store
		deps.Runs = a.store
		deps.DB = a.store
	}

	e := api.NewServer(deps)
	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      otelhttp.NewHandler(e, "catalog-scraper"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sched.Start()

	select {
	case <-ctx.Done():
		a.log.Info("shutting down server")
	case err := <-errCh:
		if err != nil {
			sched.Stop()
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		a.log.Warn("scheduled runs still in progress at shutdown")
	}

	a.log.Info("server stopped")
	return nil
}
