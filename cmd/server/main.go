package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/ttakada/mistakesync/internal/ai"
	"github.com/ttakada/mistakesync/internal/api"
	"github.com/ttakada/mistakesync/internal/config"
	"github.com/ttakada/mistakesync/internal/database"
	"github.com/ttakada/mistakesync/internal/gcal"
	"github.com/ttakada/mistakesync/internal/lock"
	"github.com/ttakada/mistakesync/internal/repositories"
	"github.com/ttakada/mistakesync/internal/services"
	"github.com/ttakada/mistakesync/internal/syncer"
)

// scheduledPassTimeout must stay below the lease TTL so a slow pass cannot
// outlive its own lease.
const scheduledPassTimeout = 9 * time.Minute

func main() {
	ctx := context.Background()

	godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database connections
	postgresPool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create postgres pool: %v", err)
	}
	defer postgresPool.Close()

	redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to create redis client: %v", err)
	}
	defer redisClient.Close()

	// Calendar client
	calendarClient, err := gcal.NewClient(ctx, gcal.ClientConfig{
		ServiceAccountJSON:   cfg.ServiceAccountJSON,
		CalendarID:           cfg.CalendarID,
		Timezone:             cfg.CalendarTimezone,
		EventDurationMinutes: cfg.DefaultEventDurationMinutes,
	})
	if err != nil {
		log.Fatalf("Failed to create calendar client: %v", err)
	}

	// Repositories and services
	stateRepo := repositories.NewPostgresSyncStateRepository(postgresPool)
	mistakeRepo := repositories.NewPostgresMistakeRepository(postgresPool)
	tagRepo := repositories.NewPostgresTagRepository(postgresPool)

	notesService := ai.NewNotesService(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	mistakeService := services.NewMistakeService(mistakeRepo, tagRepo, calendarClient, notesService)

	engine := syncer.NewEngine(calendarClient, stateRepo, mistakeRepo, cfg.CalendarID, cfg.SyncLookbackDays)
	lease := lock.NewLease(redisClient)

	// Periodic reconciliation; the lease keeps runs single-flight even
	// with multiple service instances sharing the database.
	scheduler := cron.New()
	spec := fmt.Sprintf("@every %dm", cfg.SyncIntervalMinutes)
	_, err = scheduler.AddFunc(spec, func() {
		runScheduledPass(engine, lease, cfg.CalendarID)
	})
	if err != nil {
		log.Fatalf("Failed to schedule sync: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// HTTP server
	apiServer := api.NewServer(engine, lease, mistakeService, tagRepo, stateRepo, cfg.CalendarID, cfg.APIJWTSecret)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: apiServer.Router(),
	}

	// graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func runScheduledPass(engine *syncer.Engine, lease *lock.Lease, calendarID string) {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledPassTimeout)
	defer cancel()

	release, ok, err := lease.Acquire(ctx, calendarID, 10*time.Minute)
	if err != nil {
		slog.Error("failed to acquire sync lease", "calendar_id", calendarID, "err", err)
		return
	}
	if !ok {
		slog.Info("sync pass skipped, lease held elsewhere", "calendar_id", calendarID)
		return
	}
	defer release()

	result, err := engine.Run(ctx, syncer.Options{})
	if err != nil {
		slog.Error("scheduled sync pass failed", "calendar_id", calendarID, "err", err)
		return
	}
	slog.Info("scheduled sync pass done",
		"calendar_id", calendarID, "mode", result.Mode, "deleted", result.Deleted)
}
