package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"worktime-tracker-backend/config"
	"worktime-tracker-backend/internal/api"
	"worktime-tracker-backend/internal/auth"
	"worktime-tracker-backend/internal/db"
	"worktime-tracker-backend/internal/notification"
	"worktime-tracker-backend/internal/portal"
	"worktime-tracker-backend/internal/store"
	"worktime-tracker-backend/internal/tracker"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "worktimed ", log.LstdFlags)

	// A .env file is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("Warning: failed to load .env file: %v", err)
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Println("VAPID keys are not configured; push notifications will not be delivered.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	workerPool.Start(ctx)

	tokens := auth.NewTokenSource(appStore, auth.FileRecoverer{Path: cfg.Portal.TokenFile}, cfg.Portal.Token)
	portalClient := portal.NewClient(&cfg.Portal, cfg.Tracker.Location)

	// Initialize and run the tracker in the background
	trackerSvc := tracker.NewService(cfg, appStore, portalClient, tokens, workerPool)
	go trackerSvc.Run(ctx)

	// Initialize router
	handler := api.NewHandler(appStore, trackerSvc, &webpushOptions, api.Options{
		StaleAfter:  cfg.Tracker.StaleAfter,
		LiveRefresh: time.Duration(cfg.Tracker.LiveRefreshSeconds) * time.Second,
		CacheTTL:    time.Duration(cfg.Server.CacheTTLSeconds) * time.Second,
		RateLimit:   cfg.Server.RateLimitPerSec,
		RateBurst:   cfg.Server.RateLimitBurst,
	})
	router := api.NewRouter(handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
