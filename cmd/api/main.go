package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/api/handlers"
	"github.com/dvloznov/finance-analytics/internal/api/middleware"
	"github.com/dvloznov/finance-analytics/internal/backend"
	"github.com/dvloznov/finance-analytics/internal/config"
	"github.com/dvloznov/finance-analytics/internal/export"
	"github.com/dvloznov/finance-analytics/internal/jobs/inmemory"
	"github.com/dvloznov/finance-analytics/internal/loader"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

func main() {
	// Initialize logger
	log := logger.New()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Flags override configuration
	var (
		port       = flag.String("port", cfg.Port, "HTTP server port (or set PORT env)")
		backendURL = flag.String("backend", cfg.BackendBaseURL, "Finance backend base URL (or set BACKEND_API_BASE env)")
		level      = flag.String("log-level", cfg.LogLevel, "Log level (or set LOG_LEVEL env)")
	)
	flag.Parse()

	log = logger.WithLevel(log, *level)
	ctx := logger.WithContext(context.Background(), log)

	// Analytics pipeline
	engine := analytics.NewEngine(analytics.Options{
		MonthCap:      cfg.MonthCap,
		DefaultMonths: cfg.DefaultMonths,
	})
	client := backend.NewClient(*backendURL, nil, cfg.BackendTimeout)
	reports := loader.New(client, engine)

	// Export targets
	dispatcher := export.NewDispatcher(reports)
	closeSinks, err := export.Configure(ctx, dispatcher, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure export targets")
	}
	defer closeSinks()

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(cfg.ExportQueueSize, cfg.ExportWorkers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Int("workers", cfg.ExportWorkers).Msg("Starting export workers")
	if err := jobQueue.Start(workerCtx, dispatcher.Handle); err != nil {
		log.Fatal().Err(err).Msg("Failed to start export workers")
	}

	// Initialize handlers
	analyticsHandler := handlers.NewAnalyticsHandler(reports)
	exportsHandler := handlers.NewExportsHandler(jobQueue, dispatcher)
	jobsHandler := handlers.NewJobsHandler(jobStore)

	// Create router
	mux := http.NewServeMux()

	// Analytics endpoints
	mux.HandleFunc("/api/analytics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			analyticsHandler.GetReport(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/analytics/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			analyticsHandler.Reload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Export endpoints
	mux.HandleFunc("/api/exports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			exportsHandler.CreateExport(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			// Extract job ID from path
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", handlers.Health)

	// Apply middleware
	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BackendTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", *port).Str("backend", *backendURL).Msg("Starting analytics API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight exports
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
