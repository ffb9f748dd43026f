package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/pangaea/internal/config"
	"github.com/jwebster45206/pangaea/internal/game"
	"github.com/jwebster45206/pangaea/internal/handlers"
	"github.com/jwebster45206/pangaea/internal/logger"
	"github.com/jwebster45206/pangaea/internal/middleware"
	"github.com/jwebster45206/pangaea/internal/services"
	"github.com/jwebster45206/pangaea/internal/services/events"
	"github.com/jwebster45206/pangaea/internal/storage"
	"github.com/jwebster45206/pangaea/pkg/mission"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Pangaea API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"storage_backend", cfg.StorageBackend,
		"narration_provider", cfg.NarrationProvider)

	kv, broadcaster, err := openStorage(cfg, log)
	if err != nil {
		log.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := kv.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	credentials := storage.NewCredentialStore(kv)
	if cfg.NarrationAPIKey != "" {
		if err := credentials.Set(storageCtx, cfg.NarrationAPIKey); err != nil {
			logger.WithError(log, err).Error("Failed to seed narration credential")
			os.Exit(1)
		}
		log.Info("Narration credential seeded from environment")
	}

	narrator, err := services.NewNarrator(cfg.NarrationProvider, cfg.NarrationBaseURL, cfg.NarrationModel, credentials, log)
	if err != nil {
		log.Error("Invalid narration provider", "provider", cfg.NarrationProvider, "error", err)
		os.Exit(1)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if broadcaster != nil {
		publisher = broadcaster
	}

	catalog := mission.DefaultCatalog()
	engine := game.NewEngine(game.Config{
		Narrator:         narrator,
		Store:            storage.NewGameStore(kv, cfg.StateTTL, log),
		Locker:           storage.NewLocker(kv, cfg.LockTTL, log),
		Publisher:        publisher,
		Catalog:          catalog,
		Logger:           log,
		NarrationTimeout: cfg.NarrationTimeout,
		Temperature:      cfg.NarrationTemperature,
		MaxTokens:        cfg.NarrationMaxTokens,
	})

	mux := http.NewServeMux()

	mux.Handle("/health", handlers.NewHealthHandler(kv, log))

	gameStateHandler := handlers.NewGameStateHandler(engine, log)
	mux.Handle("/v1/gamestate", gameStateHandler)
	mux.Handle("/v1/gamestate/", gameStateHandler)

	mux.Handle("/v1/missions", handlers.NewMissionsHandler(catalog, log))
	mux.Handle("/v1/traits", handlers.NewTraitsHandler(log))
	mux.Handle("/v1/credential", handlers.NewCredentialHandler(credentials, log))

	// Pub/sub needs Redis; other backends run without the event stream.
	if broadcaster != nil {
		mux.Handle("/v1/events/gamestate/", handlers.NewEventsHandler(broadcaster, log))
	}

	handler := middleware.Logger(log, mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE connections stay open.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := kv.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}

// openStorage builds the configured KV backend. The broadcaster is only
// available on Redis.
func openStorage(cfg *config.Config, log *slog.Logger) (storage.KV, *events.Broadcaster, error) {
	switch cfg.StorageBackend {
	case config.StorageSQLite:
		kv, err := storage.OpenSQLiteKV(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("Using SQLite storage", "path", cfg.SQLitePath)
		return kv, nil, nil
	case config.StorageMemory:
		log.Warn("Using in-memory storage, games are lost on restart")
		return storage.NewMemoryKV(), nil, nil
	default:
		kv, err := storage.NewRedisKV(cfg.RedisURL, log)
		if err != nil {
			return nil, nil, err
		}
		return kv, events.NewBroadcaster(kv.Client(), log), nil
	}
}
