// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/permitvault/backend-go/internal/api"
	"github.com/andresuchdata/permitvault/backend-go/internal/api/handlers"
	"github.com/andresuchdata/permitvault/backend-go/internal/cache"
	"github.com/andresuchdata/permitvault/backend-go/internal/cleanup"
	"github.com/andresuchdata/permitvault/backend-go/internal/config"
	"github.com/andresuchdata/permitvault/backend-go/internal/metrics"
	"github.com/andresuchdata/permitvault/backend-go/internal/recaptcha"
	"github.com/andresuchdata/permitvault/backend-go/internal/repository"
	"github.com/andresuchdata/permitvault/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/permitvault/backend-go/internal/storage"
	"github.com/andresuchdata/permitvault/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	logger.Log.Info().Msg("Server exiting")
}

func run(ctx context.Context) error {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(cfg.Log.Format, cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	targets, err := cleanup.ParseTargets(cfg.Cleanup.Targets)
	if err != nil {
		return err
	}

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize object storage: %w", err)
	}
	defer store.Close()

	observer, err := metrics.NewPrometheusObserver("permitvault", prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	ledger, err := cache.NewDeliveryLedger(cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize delivery ledger: %w", err)
	}
	defer ledger.Close()

	var orphans repository.OrphanRepository = repository.NoopOrphanRepository{}
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		repo := postgres.NewOrphanRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		orphans = repo
	}

	// Initialize services
	executor := cleanup.NewExecutor(store, cfg.Cleanup.DeleteTimeout(), logger.Component("cleanup"))
	cleaner := cleanup.NewCleaner(executor, orphans, observer, logger.Component("cleanup"))
	verifier := recaptcha.NewClient(cfg.Recaptcha.VerifyURL, cfg.Recaptcha.Timeout())

	services := &api.Services{
		Trigger:        handlers.NewTriggerHandler(cleaner, targets, ledger, logger.Component("trigger")),
		Verify:         handlers.NewVerifyHandler(verifier, cfg.Recaptcha.Secret, observer, logger.Component("recaptcha")),
		MetricsHandler: promhttp.Handler(),
	}
	if cfg.Database.Enabled {
		sweeper := cleanup.NewSweeper(executor, orphans, observer, cfg.Cleanup.SweepConcurrency, logger.Component("sweeper"))
		services.Orphans = handlers.NewOrphanHandler(orphans, sweeper, cfg.Cleanup.SweepBatchSize)
	}
	if cfg.Recaptcha.Secret == "" {
		logger.Log.Warn().Msg("RECAPTCHA_SECRET is not set; /verifyRecaptchaToken will answer 500")
	}

	// Initialize HTTP server
	router := api.NewRouter(services, cfg.Server.AllowedOrigins, logger.Component("http"))
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		<-ctx.Done()
		logger.Log.Info().Msg("Shutting down server...")

		// In-flight trigger requests get one full delete timeout to finish
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Cleanup.DeleteTimeout()+5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Int("targets", len(targets)).
			Str("storage", cfg.Storage.Driver).
			Msg("Starting server")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	return eg.Wait()
}
