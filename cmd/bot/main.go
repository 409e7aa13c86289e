package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/user/issuebot/internal/config"
	"github.com/user/issuebot/internal/github"
	"github.com/user/issuebot/internal/health"
	"github.com/user/issuebot/internal/notifier"
	"github.com/user/issuebot/internal/storage"
	"github.com/user/issuebot/internal/telegram"
	"github.com/user/issuebot/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init("info", "")
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	logger.Info().Int("repositories", len(cfg.GitHub.Repositories)).Msg("Starting issue tracker bot")
	if cfg.GitHub.WebhookSecret == "" {
		logger.Warn().Msg("No webhook secret configured, signature verification disabled")
	}

	// Dedup store. Unreachable storage at boot is fatal.
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	store := storage.NewEventStore(db)
	logger.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	// Chat transport and dispatcher.
	sender, err := telegram.NewSender(cfg.Telegram.Token, cfg.Telegram.ChatID, cfg.Telegram.Debug)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram sender")
	}

	msgBuilder := telegram.NewMessageBuilder()
	dispatcher := notifier.NewDispatcher(sender, msgBuilder, notifier.Options{
		QueueSize:   cfg.Notify.QueueSize,
		BatchSize:   cfg.Notify.BatchSize,
		SendDelay:   cfg.Notify.SendDelay,
		MaxAttempts: cfg.Notify.MaxAttempts,
		BackoffBase: time.Second,
	})
	dispatcher.Start()

	// Resolve the monitored list against the GitHub API. Failures are
	// warnings: a typo should be visible, not fatal.
	ghClient := github.NewClient(cfg.GitHub.Token)
	ghCtx, ghCancel := context.WithTimeout(context.Background(), 30*time.Second)
	stars := ghClient.RepositoryStars(ghCtx, cfg.GitHub.Repositories)
	ghCancel()

	dispatcher.EnqueueCritical(msgBuilder.BuildStartupMessage(cfg.GitHub.Repositories, stars, cfg.Database.Path))

	webhookHandler := github.NewWebhookHandler(
		cfg.GitHub.WebhookSecret, cfg.MonitoredSet(), store, dispatcher, msgBuilder)
	healthHandler := health.NewHandler(store, dispatcher, cfg.Notify.SaturationThreshold)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/webhook", webhookHandler.ServeHTTP)
	r.Get("/health", healthHandler.ServeHTTP)
	r.Get("/", healthHandler.ServeHTTP)

	server := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("address", cfg.ServerAddress()).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// Periodic ledger pruning.
	cleanupDone := make(chan struct{})
	go runCleanup(store, cfg.Database.RetentionDays, cleanupDone)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop accepting webhooks first, then flush queued notifications.
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}
	close(cleanupDone)
	if err := dispatcher.Close(ctx); err != nil {
		logger.Error().Err(err).Msg("Dispatcher did not flush in time")
	}

	logger.Info().Msg("Shutdown complete")
}

// runCleanup prunes old dedup records once a day until done closes.
func runCleanup(store *storage.EventStore, retentionDays int, done <-chan struct{}) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			removed, err := store.CleanupOld(retentionDays)
			if err != nil {
				logger.Warn().Err(err).Msg("Dedup cleanup failed")
				continue
			}
			if removed > 0 {
				logger.Info().Int64("removed", removed).Msg("Pruned old dedup records")
			}
		}
	}
}
