package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"focustrack-backend/internal/config"
	"focustrack-backend/internal/database"
	"focustrack-backend/internal/handlers"
	"focustrack-backend/internal/middleware"
	"focustrack-backend/internal/repository"
	"focustrack-backend/internal/router"
	"focustrack-backend/internal/services"
	"focustrack-backend/internal/storage"
	"focustrack-backend/internal/tracker"
	"focustrack-backend/internal/websocket"
	"focustrack-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting FocusTrack Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize Storage Backend ────
	var store storage.Backend
	var redisClients *database.RedisClients

	if cfg.RedisURL != "" {
		clients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		redisClients = clients
		defer redisClients.Close()
		log.Println("✓ Redis connected")
	}

	switch cfg.StorageBackend {
	case "memory":
		store = storage.NewMemoryBackend()
		log.Println("✓ In-memory storage backend (state is not durable across restarts)")
	case "redis":
		store = storage.NewRedisBackend(redisClients.Store)
		log.Println("✓ Redis storage backend")
	case "postgres":
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		if err := database.RunMigrations(pool, "migrations"); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		store = storage.NewPostgresBackend(pool)
		log.Println("✓ PostgreSQL storage backend, migrations applied")
	}

	// ──── Initialize Repositories ────
	sessionRepo := repository.NewSessionRepo(store)
	overrideRepo := repository.NewOverrideRepo(store)
	userRepo := repository.NewUserRepo(store)
	metaRepo := repository.NewMetaRepo(store)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	backupService := services.NewBackupService(store, nil)
	syncService := services.NewSyncService(sessionRepo, userRepo, metaRepo, cfg.SyncMarkOnExport, nil)
	diagService := services.NewDiagnosticsService(sessionRepo, store, nil)

	// ──── Step 3: Start Tracking State Machine ────
	timezone := "UTC"
	if info, err := userRepo.GetUserInfo(context.Background()); err == nil && info != nil && info.Timezone != "" {
		timezone = info.Timezone
	}

	// The hub observes tracker transitions and the tracker consumes the
	// hub's signal stream; the closure breaks the construction cycle.
	var wsHub *websocket.Hub
	trk := tracker.New(sessionRepo, tracker.Options{
		TickInterval: cfg.TickInterval,
		SleepGap:     cfg.SleepGapThreshold,
		Timezone:     timezone,
		Notify: func(tr tracker.Transition) {
			if wsHub != nil {
				wsHub.Broadcast(tr)
			}
		},
	})

	if redisClients != nil {
		wsHub = websocket.NewHub(redisClients.PubSub, jwtAuth, trk)
	} else {
		wsHub = websocket.NewHub(nil, jwtAuth, trk)
	}
	log.Println("✓ WebSocket hub started")

	if err := trk.Start(context.Background()); err != nil {
		log.Fatalf("✗ Tracker startup failed: %v", err)
	}
	log.Printf("✓ Tracking state machine started (tick %s, sleep gap %s)", cfg.TickInterval, cfg.SleepGapThreshold)

	// ──── Step 4: Start Maintenance Worker Pool ────
	var workerPool *worker.Pool
	var scheduler *services.MaintenanceScheduler
	if redisClients != nil {
		workerPool = worker.NewPool(redisClients.Store, sessionRepo, overrideRepo, backupService, cfg.RetentionDays, 2)
		workerPool.Start()
		log.Println("✓ Maintenance worker pool started (2 goroutines)")

		scheduler = services.NewMaintenanceScheduler(redisClients.Store, metaRepo)
		scheduler.Start()
	} else {
		log.Println("⚠ No Redis configured; maintenance scheduler disabled")
	}

	// ──── Initialize Handlers ────
	sessionHandler := handlers.NewSessionHandler(sessionRepo, cfg.RetentionDays)
	backupHandler := handlers.NewBackupHandler(backupService)
	statusHandler := handlers.NewStatusHandler(syncService, diagService, trk)
	userHandler := handlers.NewUserHandler(userRepo)
	signalHandler := handlers.NewSignalHandler(trk)

	// ──── Step 5: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		sessionHandler,
		backupHandler,
		statusHandler,
		userHandler,
		signalHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: flush the active record before the process ends.
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		trk.Shutdown()
		if workerPool != nil {
			workerPool.Stop()
		}
		if scheduler != nil {
			scheduler.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ FocusTrack Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
