package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bolso/internal/amqp"
	"bolso/internal/auth"
	"bolso/internal/cache"
	"bolso/internal/config"
	"bolso/internal/core"
	apphttp "bolso/internal/http"
	applog "bolso/internal/log"
	"bolso/internal/services"
	"bolso/internal/store"
	"bolso/internal/store/memory"
	"bolso/internal/store/sqlite"
)

// slogNotifier surfaces user-facing fetch failures in the logs. The API
// itself never errors on reads, so this is the only trace a degraded fetch
// leaves server-side.
type slogNotifier struct{}

func (slogNotifier) Notify(ctx context.Context, message string) {
	slog.WarnContext(ctx, "User notification emitted", "message", message)
}

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentApp,
		JSON:      cfg.LogJSON,
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var st store.Store
	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		st = repo
		logger.Info("Initialized SQLite backend", "path", cfg.SQLiteDBPath)
	default:
		st = memory.New()
		logger.Info("Initialized memory backend")
	}
	defer st.Close()

	// Transaction list cache with periodic cleanup alongside lazy expiry.
	listCache := cache.NewTTLCache[[]core.Transaction](cfg.CacheTTL, cfg.CacheMaxSize)
	cacheManager := cache.NewManager()
	cacheManager.Register(listCache)
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()

	// Change events are optional; without AMQP the backup worker simply
	// never hears about writes.
	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	svc := services.NewTransactionService(st, listCache, services.TransactionServiceConfig{
		FetchTTL:  cfg.FetchCacheTTL,
		Notifier:  slogNotifier{},
		Publisher: publisher,
	})

	identity := auth.NewHeaderIdentity(cfg.OwnerHeader)
	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}, svc, st, identity)
	if err != nil {
		logger.Error("Failed to configure HTTP server", "error", err)
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting bolso server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
