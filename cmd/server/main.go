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

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/url-diet/internal/analytics"
	"github.com/darkodi/url-diet/internal/config"
	"github.com/darkodi/url-diet/internal/handler"
	"github.com/darkodi/url-diet/internal/keygen"
	"github.com/darkodi/url-diet/internal/kv"
	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/metrics"
	"github.com/darkodi/url-diet/internal/middleware"
	"github.com/darkodi/url-diet/internal/ratelimit"
	"github.com/darkodi/url-diet/internal/repository"
	"github.com/darkodi/url-diet/internal/service"
)

func main() {
	// ============================================================
	// LOAD CONFIGURATION
	// ============================================================
	fmt.Println("📋 Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	if cfg.IsDevelopment() {
		fmt.Printf("   Environment: %s\n", cfg.App.Environment)
		fmt.Printf("   Port: %s\n", cfg.Server.Port)
		fmt.Printf("   Database: %s\n", cfg.Database.Driver)
		fmt.Printf("   Lookup backend: %s\n", cfg.Redis.Backend)
		fmt.Printf("   Base URL: %s\n", cfg.App.BaseURL)
	}

	// ============================================================
	// INITIALIZE LOGGER
	// ============================================================
	log := logger.New(cfg.Log)

	log.Info("starting url-diet",
		"level", cfg.Log.Level,
		"format", cfg.Log.Format,
		"environment", cfg.App.Environment)

	m := metrics.New()

	// ============================================================
	// METADATA STORE
	// ============================================================
	log.Info("connecting to database...", "driver", cfg.Database.Driver)
	repo, err := repository.NewLinkRepository(&cfg.Database, log)
	if err != nil {
		log.Error("Failed to initialize database", "error", err.Error())
		os.Exit(1)
	}

	// ============================================================
	// LOOKUP STORE + RATE COUNTER
	// ============================================================
	var (
		lookup      service.LookupStore
		counter     ratelimit.Counter
		redisClient *redis.Client
		memCounter  *ratelimit.MemoryCounter
	)

	switch cfg.Redis.Backend {
	case "redis":
		log.Info("connecting to Redis...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.App.StoreTimeout)
		redisClient, err = kv.NewRedisClient(ctx, cfg.Redis.URL)
		cancel()
		if err != nil {
			log.Error("Failed to connect to Redis", "error", err.Error())
			repo.Close()
			os.Exit(1)
		}
		lookup = kv.NewRedisStore(redisClient)
		counter = ratelimit.NewRedisCounter(redisClient)
		log.Info("Redis connected successfully!")
	default:
		log.Warn("using in-process lookup store and rate counter; state is lost on restart")
		lookup = kv.NewMemoryStore()
		memCounter = ratelimit.NewMemoryCounter(5 * time.Minute)
		counter = memCounter
	}

	// ============================================================
	// SERVICES
	// ============================================================
	var limiter service.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(counter, ratelimit.Config{
			Limit:    int64(cfg.RateLimit.PerHour),
			FailOpen: cfg.RateLimit.FailOpen,
		}, log, m)
		log.Info("rate limiter enabled",
			"per_hour", cfg.RateLimit.PerHour,
			"fail_open", cfg.RateLimit.FailOpen,
		)
	}

	recorder := analytics.NewRecorder(repo, analytics.Config{
		Workers:   cfg.Analytics.Workers,
		QueueSize: cfg.Analytics.QueueSize,
		Timeout:   cfg.App.StoreTimeout,
	}, log, m)

	shortenSvc := service.NewShortenService(lookup, repo, limiter, keygen.New(), service.ShortenConfig{
		BaseURL:      cfg.App.BaseURL,
		MaxAttempts:  cfg.App.KeyMaxAttempts,
		StoreTimeout: cfg.App.StoreTimeout,
	}, log, m)
	redirectSvc := service.NewRedirectService(lookup, recorder, cfg.App.StoreTimeout, log, m)
	statsSvc := service.NewStatsService(repo, cfg.App.StoreTimeout)

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if cfg.App.ReconcileInterval > 0 {
		reconciler := service.NewReconciler(lookup, repo, cfg.App.StoreTimeout, log, m)
		go reconciler.Run(bgCtx, cfg.App.ReconcileInterval)
		log.Info("reconciliation sweep enabled", "interval", cfg.App.ReconcileInterval.String())
	}

	// ============================================================
	// HTTP HANDLERS + MIDDLEWARE CHAIN
	// ============================================================
	h := handler.NewLinkHandler(shortenSvc, redirectSvc, statsSvc, cfg.App.ClientIPHeader, log)
	h.AddHealthCheck("database", repo.Ping)
	if redisClient != nil {
		h.AddHealthCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	wrappedRouter := middleware.Stack(h.Routes(), log, m, cfg.CORS)

	// ============================================================
	// CREATE SERVERS WITH CONFIG TIMEOUTS
	// ============================================================
	addr := ":" + cfg.Server.Port
	server := &http.Server{
		Addr:         addr,
		Handler:      wrappedRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
		}
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Channel to track server errors
	serverErr := make(chan error, 2)

	go func() {
		if cfg.IsDevelopment() {
			fmt.Printf("🚀 Server starting on http://localhost%s\n", addr)
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Endpoints:")
			fmt.Println("  POST    /api/shorten     - Create short URL")
			fmt.Println("  GET     /{key}           - Redirect to original")
			fmt.Println("  GET     /api/links/{key} - View statistics")
			fmt.Println("  GET     /api/health      - Health check")
			fmt.Println("───────────────────────────────────────")
			fmt.Println("Press Ctrl+C to shutdown gracefully")
		}
		log.Info("server starting", "addr", "http://localhost"+addr)
		serverErr <- server.ListenAndServe()
	}()

	if metricsServer != nil {
		go func() {
			log.Info("metrics server starting", "addr", cfg.Metrics.Addr)
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				serverErr <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// ============================================================
	// WAIT FOR SHUTDOWN OR ERROR
	// ============================================================
	exitCode := 0
	select {
	case err := <-serverErr:
		log.Error("server error", "error", err.Error())
		exitCode = 1

	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		// force close if graceful shutdown fails
		if err := server.Close(); err != nil {
			log.Error("forced shutdown failed", "error", err.Error())
		}
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			log.Error("metrics server shutdown failed", "error", err.Error())
		}
	}

	stopBackground()

	// Drain queued redirect events before the database goes away
	if err := recorder.Close(ctx); err != nil {
		log.Error("analytics drain incomplete", "error", err.Error())
	}

	if memCounter != nil {
		memCounter.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("failed to close Redis client", "error", err.Error())
		}
	}

	// Close repository (database connection)
	if err := repo.Close(); err != nil {
		log.Error("failed to close database", "error", err.Error())
	}

	log.Info("server stopped")
	cancel()
	os.Exit(exitCode)
}
