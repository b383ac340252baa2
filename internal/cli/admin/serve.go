package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/notewise/internal/api/handlers"
	"github.com/cloo-solutions/notewise/internal/config"
	"github.com/cloo-solutions/notewise/internal/database"
	"github.com/cloo-solutions/notewise/internal/jobs"
	"github.com/cloo-solutions/notewise/internal/logging"
	"github.com/cloo-solutions/notewise/internal/server"
	"github.com/cloo-solutions/notewise/internal/telemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the notewise API server and the index job worker",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides NOTEWISE_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.Flags().Bool("no-worker", false, "Do not start the index job worker")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Debug)

	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.Environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Warn().Err(err).Msg("telemetry init failed, continuing without tracing")
		} else {
			defer shutdownTelemetry()
		}
	}

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	if cfg.APIToken == "" {
		return fmt.Errorf("NOTEWISE_API_TOKEN is required to serve")
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !cfg.UseMemoryStore() && !noMigrate {
		if err := database.Migrate(cfg.DatabaseURL, database.DefaultMigrationsPath); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var worker *jobs.Worker
	noWorker, _ := cmd.Flags().GetBool("no-worker")
	if a.jobRepo != nil && !noWorker {
		worker = jobs.NewWorker(jobs.NewIndexWorker(a.jobRepo, a.rag), cfg.WorkerPollInterval)
		go worker.Start(ctx)
	}

	var jobSvc handlers.JobService
	if a.jobs != nil {
		jobSvc = a.jobs
	}

	router := server.NewRouter(server.RouterConfig{
		APIToken:       cfg.APIToken,
		RequestTimeout: cfg.RequestTimeout,
		IndexHandler:   handlers.NewIndexHandler(a.rag, jobSvc),
		ContextHandler: handlers.NewContextHandler(a.rag, a.chat),
		UploadHandler:  handlers.NewUploadHandler(a.upload),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.VectorBackend).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("shutting down")
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	if worker != nil {
		worker.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited")
	return nil
}
