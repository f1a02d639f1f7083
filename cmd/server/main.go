package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/loadshare/internal"
	"github.com/DukeRupert/loadshare/internal/csrf"
	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/form"
	"github.com/DukeRupert/loadshare/internal/handler"
	"github.com/DukeRupert/loadshare/internal/jobs"
	"github.com/DukeRupert/loadshare/internal/metrics"
	"github.com/DukeRupert/loadshare/internal/middleware"
	"github.com/DukeRupert/loadshare/internal/repository"
	"github.com/DukeRupert/loadshare/internal/service"
	"github.com/DukeRupert/loadshare/internal/storage"
	"github.com/DukeRupert/loadshare/internal/worker"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database connection
	db, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// Run migrations
	if err := internal.RunMigrations(db, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database ready")

	repo := repository.New(db)

	// Initialize file storage
	store, err := storage.New(storage.Config{
		Provider: cfg.StorageProvider,
		Local:    storage.LocalConfig{BasePath: cfg.LocalStoragePath},
		R2: storage.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
		},
	}, logger)
	if err != nil {
		return fmt.Errorf("storage initialization failed: %w", err)
	}
	logger.Info("Storage ready", "provider", cfg.StorageProvider)

	// Initialize template renderer
	renderer, err := handler.NewRenderer(handler.RendererConfig{
		TemplatesDir: "internal/handler/templates",
		Logger:       logger,
		IsDev:        cfg.IsDevelopment(),
	})
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}
	logger.Info("Templates loaded", "count", len(renderer.ListTemplates()))

	// Initialize services
	userService := service.NewUserService(repo, logger, service.UserServiceConfig{
		SessionDuration: cfg.SessionTTL,
	})
	loadService := service.NewLoadService(repo, logger)
	messageService := service.NewMessageService(repo, loadService, logger)
	imageService := service.NewImageService(repo, store, service.NewImagingProcessor(), logger)

	// ==========================================================================
	// Background worker
	// ==========================================================================

	var w *worker.Worker
	if cfg.WorkerEnabled {
		wcfg := worker.DefaultConfig()
		wcfg.Concurrency = cfg.WorkerConcurrency
		wcfg.PollInterval = cfg.WorkerPollInterval
		wcfg.JobTimeout = cfg.WorkerJobTimeout

		w, err = worker.New(db, repo, wcfg, logger)
		if err != nil {
			return fmt.Errorf("worker initialization failed: %w", err)
		}
		w.Register(jobs.NewGenerateThumbnailHandler(imageService, logger))
		w.Register(jobs.NewPurgeSessionsHandler(userService, logger))
		w.Every("purge_sessions", wcfg.SessionPurgeInterval, func(ctx context.Context) error {
			_, err := worker.EnqueuePurgeSessions(ctx, repo)
			return err
		})
		w.Start(ctx)
	} else {
		logger.Warn("Background worker disabled, thumbnails will not be generated")
	}

	// Initialize middleware
	isSecure := cfg.SecureCookies()
	authMw := middleware.NewAuthMiddleware(userService, logger, isSecure)
	rateLimiter := middleware.NewAuthRateLimiter(cfg.AuthRateLimit, cfg.AuthRateLimitWindow, logger)
	defer rateLimiter.Close()
	metricsAuth := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)
	if !metricsAuth.Enabled() {
		logger.Warn("Metrics endpoint is not protected, set METRICS_USERNAME and METRICS_PASSWORD")
	}

	// Initialize handlers
	guard := form.NewGuard(cfg.SubmissionKeyTTL)
	homeHandler := handler.NewHomeHandler(db.PingContext, renderer, logger, isSecure)
	authHandler := handler.NewAuthHandler(userService, guard, renderer, logger, handler.AuthConfig{
		SessionTTL:   cfg.SessionTTL,
		SuccessDelay: cfg.SuccessRedirectDelay,
		IsSecure:     isSecure,
	})
	dashboardHandler := handler.NewDashboardHandler(loadService, renderer, logger, isSecure)
	loadHandler := handler.NewLoadHandler(loadService, messageService, imageService, guard, renderer, logger, isSecure, cfg.SuccessRedirectDelay)
	imageHandler := handler.NewImageHandler(imageService, logger)
	apiHandler := handler.NewAPIHandler(userService, loadService, messageService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	mux := http.NewServeMux()

	mux.Handle("GET /static/", handler.Static())
	mux.Handle("GET /metrics", metricsAuth.Handler(promhttp.Handler()))

	// Public pages
	homeHandler.RegisterRoutes(mux)
	imageHandler.RegisterRoutes(mux)

	// Auth routes; the form posts are rate limited per client IP
	authHandler.RegisterRoutes(mux)
	mux.Handle("POST /register", rateLimiter.LimitRegister(http.HandlerFunc(authHandler.Register)))
	mux.Handle("POST /login", rateLimiter.LimitLogin(http.HandlerFunc(authHandler.Login)))

	// Middleware stacks for protected routes. WithUser already runs on
	// every request, see the chain below.
	requireUser := authMw.RequireUser
	requireOwner := authMw.RequireRole(domain.RoleLoadOwner)
	requireDriver := authMw.RequireRole(domain.RoleDriver)

	// Dashboards
	mux.Handle("GET /dashboard", requireUser(http.HandlerFunc(dashboardHandler.Dashboard)))
	mux.Handle("GET /dashboard/load-owner", requireOwner(http.HandlerFunc(dashboardHandler.LoadOwner)))
	mux.Handle("GET /dashboard/driver", requireDriver(http.HandlerFunc(dashboardHandler.Driver)))

	// Loads
	mux.Handle("GET /loads/new", requireOwner(http.HandlerFunc(loadHandler.ShowNew)))
	mux.Handle("POST /loads", requireOwner(http.MaxBytesHandler(http.HandlerFunc(loadHandler.Create), handler.MaxLoadFormBytes)))
	mux.Handle("GET /loads/{id}", requireUser(http.HandlerFunc(loadHandler.Show)))
	mux.Handle("POST /loads/{id}/claim", requireUser(http.HandlerFunc(loadHandler.Claim)))
	mux.Handle("POST /loads/{id}/status", requireUser(http.HandlerFunc(loadHandler.UpdateStatus)))
	mux.Handle("POST /loads/{id}/messages", requireUser(http.HandlerFunc(loadHandler.SendMessage)))

	// JSON API. Bearer tokens authenticate through the same WithUser
	// middleware; handlers check the user themselves.
	api := http.NewServeMux()
	apiHandler.RegisterRoutes(api)
	api.Handle("POST /api/auth/register", rateLimiter.LimitRegister(http.HandlerFunc(apiHandler.Register)))
	api.Handle("POST /api/auth/login", rateLimiter.LimitLogin(http.HandlerFunc(apiHandler.Login)))
	mux.Handle("/api/", middleware.NewCORS(cfg.CORSOrigins)(api))

	// Global middleware, outermost first
	chain := middleware.Stack(
		middleware.NewRequestLoggingMiddleware(logger).Handler,
		middleware.NewSecurityHeadersMiddleware(isSecure).Handler,
		csrf.NewMiddleware(logger, "/api/").Protect,
		authMw.WithUser,
		metrics.Middleware,
	)

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env, "base_url", cfg.BaseURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if w != nil {
		w.Stop()
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
