package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"priomatrix-backend/application/lock"
	"priomatrix-backend/infrastructure/config"
	"priomatrix-backend/infrastructure/di"
	"priomatrix-backend/interfaces/http/rest"
	"priomatrix-backend/interfaces/http/rest/handlers"
	"priomatrix-backend/interfaces/websocket"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// WebSocket hub and event broadcaster
	hub := websocket.NewHub(container.Logger)
	go hub.Run()
	defer hub.Stop()
	websocket.NewBroadcaster(hub, container.CardStore, container.Dispatcher, container.Logger)
	wsServer := websocket.NewServer(hub, container.JWTValidator, container.Logger)

	// Background workers: remote change pumps and the lock lease sweeper
	for _, remoteFeed := range container.Persistence.Feeds {
		go container.Engine.ConsumeRemote(ctx, remoteFeed)
	}
	go container.LockManager.RunSweeper(ctx, cfg.LockSweepEvery, func(expired []lock.ExpiredLock) {
		container.Engine.HandleExpiredLocks(ctx, expired)
	})

	// HTTP interface
	cardHandler := handlers.NewCardHandler(container.IdeasService, container.CardStore, container.Logger)
	dragHandler := handlers.NewDragHandler(container.Engine, container.Logger)
	syncHandler := handlers.NewSyncHandler(container.ChannelFeed, container.Logger)

	router := rest.NewRouter(
		cardHandler,
		dragHandler,
		syncHandler,
		wsServer.HandleWebSocket,
		container.JWTValidator,
		container.Metrics,
		cfg,
		container.Logger,
	)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		container.Logger.Info("Starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
			zap.String("persistenceDriver", cfg.PersistenceDriver),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	container.Logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Server stopped")
}
