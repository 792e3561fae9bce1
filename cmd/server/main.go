package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-live-backend/internal/config"
	"quiz-live-backend/internal/database"
	"quiz-live-backend/internal/handlers"
	"quiz-live-backend/internal/live"
	"quiz-live-backend/internal/realtime"
	"quiz-live-backend/internal/services"
	"quiz-live-backend/internal/ws"

	_ "quiz-live-backend/docs"
)

// @title           Quiz Live API
// @version         1.0
// @description     Live quiz sessions: hosting, joining by PIN, timed play and scoring
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if cfg.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("database: %v", err)
		}
	}

	bus := realtime.NewBus()
	backend := services.NewBackend(db, bus)
	authService := services.NewAuthService(db, cfg.JWTSecret)

	manager := live.NewManager(backend, bus, live.SystemClock(), live.Options{
		Countdown:      cfg.Countdown(),
		PinMaxAttempts: cfg.PinMaxAttempts,
		PollInterval:   cfg.PollInterval,
	})
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := manager.Restore(restoreCtx); err != nil {
		log.Printf("live: restore failed: %v", err)
	}
	cancelRestore()

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:          authService,
		Backend:       backend,
		Manager:       manager,
		Hub:           ws.NewHub(bus),
		PublicBaseURL: cfg.PublicBaseURL,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("server starting on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	// Sessions stay live in the database and are restored on the next start.
	manager.Shutdown()
}
