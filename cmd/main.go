package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/clawlab/companion/adapters/notify"
	"github.com/clawlab/companion/adapters/storage"
	"github.com/clawlab/companion/domain/repositories"
	"github.com/clawlab/companion/internal/api"
	"github.com/clawlab/companion/internal/websocket"
	"github.com/clawlab/companion/usecase"
)

const (
	firstLaunchKey     = "hasVisitedBefore"
	telemetryPushEvery = 5 * time.Second
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Optional .env for local development
	if err := godotenv.Load(); err == nil {
		logger.Info("Loaded environment from .env")
	}

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Persistence backend
	store := newStore(logger)

	// WebSocket hub doubles as the notification sink's client channel
	hub := websocket.NewHub(logger.Named("ws"))
	go hub.Run()
	notifier := notify.NewBroadcastNotifier(hub, logger.Named("notify"))

	// State cores
	cores := usecase.NewRegistry(store, notifier, logger)

	// First-launch flag: written exactly once; the UI uses it to decide
	// whether to auto-open the connection dialog.
	firstLaunch := false
	if _, ok := store.Get(firstLaunchKey); !ok {
		store.Set(firstLaunchKey, "true")
		firstLaunch = true
		logger.Info("First launch recorded")
	}
	if firstLaunch {
		cores.Hardware.OpenConnectionDialog()
	}

	// Periodic telemetry push while the hardware link is up
	go func() {
		ticker := time.NewTicker(telemetryPushEvery)
		defer ticker.Stop()
		for range ticker.C {
			if err := cores.Hardware.RefreshStatus(); err != nil {
				continue
			}
			hub.BroadcastTelemetry(cores.Hardware.Snapshot())
		}
	}()

	// Initialize API routes
	api.InitRoutes(e, cores, store, hub, logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("ClawLab companion started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newStore picks the persistence backend from STORAGE_BACKEND: "file"
// (default), "redis", "mongo" or "memory".
func newStore(logger *zap.Logger) repositories.KeyValueStore {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch os.Getenv("STORAGE_BACKEND") {
	case "redis":
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		store, err := storage.NewRedisStore(ctx, addr, "clawlab", logger.Named("storage"))
		if err != nil {
			logger.Fatal("Failed to open redis store", zap.Error(err))
		}
		return store

	case "mongo":
		uri := os.Getenv("MONGODB_URI")
		if uri == "" {
			uri = "mongodb://localhost:27017"
		}
		database := os.Getenv("MONGODB_DATABASE")
		if database == "" {
			database = "clawlab"
		}
		store, err := storage.NewMongoStore(ctx, uri, database, "keyvalue", logger.Named("storage"))
		if err != nil {
			logger.Fatal("Failed to open mongo store", zap.Error(err))
		}
		return store

	case "memory":
		return storage.NewMemoryStore()

	default:
		path := os.Getenv("STORAGE_PATH")
		if path == "" {
			path = "clawlab-companion.json"
		}
		return storage.NewFileStore(path, logger.Named("storage"))
	}
}
