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

	"machine-service-backend/config"
	"machine-service-backend/internal/api"
	"machine-service-backend/internal/backend"
	"machine-service-backend/internal/db"
	"machine-service-backend/internal/model"
	"machine-service-backend/internal/notification"
	"machine-service-backend/internal/roster"
	"machine-service-backend/internal/workflow"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "machine-service ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Printf("no configuration at %s; using defaults", configPath)
		cfg = config.Default()
	} else if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	} else {
		logger.Printf("configuration loaded successfully from %s", configPath)
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

	journeys, closeStore, err := backend.Open(&cfg.Store, gormDB)
	if err != nil {
		logger.Fatalf("failed to open %s store: %v", cfg.Store.Backend, err)
	}
	defer closeStore()
	logger.Printf("data store initialized (%s backend)", cfg.Store.Backend)

	ros := roster.New(gormDB)
	if err := ros.Seed(ctx, seedOperators(cfg.Roster.Defaults)); err != nil {
		logger.Fatalf("failed to seed operator roster: %v", err)
	}

	engine := workflow.NewEngine(journeys, workflow.Options{
		WaitEstimator:   workflow.FixedWaitEstimator(cfg.Workflow.WaitPerMachine),
		EnforceSequence: cfg.Workflow.EnforceSequence,
	})

	// Push is optional; without VAPID keys the notifier stays nil and
	// checkouts skip notification.
	var webpushOptions *webpush.Options
	var notifier *notification.WorkerPool
	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		notifier = notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize, gormDB, webpushOptions)
		notifier.Start(ctx)
	} else {
		logger.Println("VAPID keys are not configured; push notifications disabled")
	}

	// Initialize router
	handler := api.NewHandler(api.Deps{
		Engine:   engine,
		Roster:   ros,
		Store:    journeys,
		DB:       gormDB,
		Webpush:  webpushOptions,
		Notifier: notifier,
		Location: cfg.Server.Location,
	})
	router := api.NewRouter(handler, cfg.Server)
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

func seedOperators(entries []config.RosterEntry) []model.Operator {
	out := make([]model.Operator, 0, len(entries))
	for _, e := range entries {
		out = append(out, model.Operator{Name: e.Name, EPF: e.EPF})
	}
	return out
}
