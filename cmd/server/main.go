package main

import (
	"alcyxob/workout-journal/internal/api"
	"alcyxob/workout-journal/internal/bootstrap"
	"alcyxob/workout-journal/internal/config"
	"alcyxob/workout-journal/internal/nlu"
	"alcyxob/workout-journal/internal/service"
	"alcyxob/workout-journal/internal/storage"
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Workout Journal API
// @version 1.0
// @description Capture workouts from free text, resolve exercises against the catalog and review drafts.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	log.Println("Starting Workout Journal Server...")

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatalf("FATAL: jwt.secret must be set")
	}
	logger := bootstrap.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)
	log.Println("Configuration loaded.")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	stores, err := bootstrap.OpenStores(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("FATAL: Could not open %s store: %v", cfg.Database.Driver, err)
	}
	defer func() {
		log.Println("Closing store...")
		if err := stores.Close(); err != nil {
			log.Printf("ERROR: Failed to close store: %v", err)
		}
	}()
	log.Printf("Store %q ready.", cfg.Database.Driver)

	// --- Seed Catalog ---
	seedCtx, cancelSeed := context.WithTimeout(ctx, time.Minute)
	report, err := service.SeedCatalog(seedCtx, stores.Catalog, service.DefaultCatalog())
	cancelSeed()
	if err != nil {
		log.Fatalf("FATAL: Could not seed exercise catalog: %v", err)
	}
	logger.Info("catalog seeded",
		"exercises_created", report.ExercisesCreated, "exercises_skipped", report.ExercisesSkipped,
		"synonyms_created", report.SynonymsCreated, "synonyms_skipped", report.SynonymsSkipped)

	// --- Initialize Storage ---
	var fileStorage storage.FileStorage
	if cfg.S3.BucketName != "" {
		log.Println("Initializing file storage service...")
		fileStorage, err = storage.NewS3Storage(ctx, cfg.S3)
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Println("s3.bucket_name not set; approved workouts will not be published.")
	}

	// --- Initialize Services ---
	log.Println("Initializing services...")
	authService := service.NewAuthService(stores.Users, cfg.JWT.Secret, cfg.JWT.Expiration)
	exerciseService := service.NewExerciseService(stores.Catalog, logger)
	workoutService := service.NewWorkoutService(stores.Workouts, exerciseService, logger)
	publisher := service.NewPublisher(fileStorage, logger)
	lock := service.NewProcessingLock(stores.Locks, cfg.Dialog.LockTTL, logger)

	var parser nlu.Parser
	if cfg.NLU.Endpoint != "" {
		parser = nlu.NewClient(nlu.ClientConfig{
			Endpoint: cfg.NLU.Endpoint,
			APIKey:   cfg.NLU.APIKey,
			Model:    cfg.NLU.Model,
			Timeout:  cfg.NLU.Timeout,
		}, exerciseService, logger)
	} else {
		log.Println("nlu.endpoint not set; only pre-parsed workouts are accepted.")
	}

	var transcriber nlu.Transcriber
	if cfg.STT.Endpoint != "" {
		transcriber = nlu.NewTranscriber(nlu.TranscriberConfig{
			Endpoint: cfg.STT.Endpoint,
			APIKey:   cfg.STT.APIKey,
			Model:    cfg.STT.Model,
			Language: cfg.STT.Language,
			Timeout:  cfg.STT.Timeout,
		}, logger)
	} else {
		log.Println("stt.endpoint not set; voice messages are rejected.")
	}

	dialogService := service.NewDialogService(
		stores.Dialogs, workoutService, exerciseService, parser, transcriber, publisher, lock, cfg.Dialog.Timeout, logger,
	)
	go dialogService.RunSweeper(ctx, cfg.Dialog.SweepInterval)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	log.Println("Setting up API routes...")
	api.SetupRoutes(router, cfg.JWT.Secret, authService, exerciseService, workoutService, dialogService)

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second, // the parser call alone may take up to nlu.timeout
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: ListenAndServe Error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting.")
}
