package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/zhy3800/MovieWebsite/internal/cron"
	"github.com/zhy3800/MovieWebsite/internal/repository"
	"github.com/zhy3800/MovieWebsite/internal/server"
	"github.com/zhy3800/MovieWebsite/pkg/config"
	"github.com/zhy3800/MovieWebsite/pkg/db"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/telemetry"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, log, migrate)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving (postgres only)")
	return cmd
}

func runServe(parent context.Context, cfg *config.Config, log logger.Logger, migrate bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting movie-svc", logger.String("env", cfg.App.Env))

	shutdownTracing, err := telemetry.Init(ctx, &telemetry.Config{
		ServiceName:  cfg.App.Name,
		Environment:  cfg.App.Env,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		SampleRatio:  cfg.Telemetry.SampleRatio,
		Enabled:      cfg.Telemetry.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("telemetry shutdown failed", logger.Err(err))
		}
	}()

	if migrate && cfg.Storage.Driver == config.DriverPostgres {
		m, err := db.Open(cfg.Postgres.DSN(), repository.MigrationsFS, repository.MigrationsPath)
		if err != nil {
			return err
		}
		err = m.EnsureSchema()
		_ = m.Close()
		if err != nil {
			return err
		}
		log.Info("database schema up to date")
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Cron.Enabled {
		cronManager := cron.NewCronManager(a.aggregates, cfg.Cron.ReconcileSpec, cfg.Cron.JobTimeout, log)
		if err := cronManager.Start(); err != nil {
			return err
		}
		defer cronManager.Stop()
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := server.NewRouter(server.Deps{
		Credentials: a.credentials,
		Movies:      a.movies,
		Aggregates:  a.aggregates,
		Ratings:     a.ratings,
		Favorites:   a.favorites,
		Comments:    a.comments,
		Health:      a.healthDeps(),
		Tokens:      a.tokens,
		AuthLimiter: a.authLimiter(),
		Logger:      log,
		ServiceName: cfg.App.Name,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", logger.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down movie-svc...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", logger.Err(err))
		return err
	}
	log.Info("movie-svc stopped")
	return nil
}
