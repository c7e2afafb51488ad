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

	"go.uber.org/zap"

	"github.com/medscan-io/report-engine/pkg/config"
	"github.com/medscan-io/report-engine/pkg/database"
	"github.com/medscan-io/report-engine/pkg/extract"
	"github.com/medscan-io/report-engine/pkg/handlers"
	"github.com/medscan-io/report-engine/pkg/logging"
	"github.com/medscan-io/report-engine/pkg/repositories"
	"github.com/medscan-io/report-engine/pkg/retry"
	"github.com/medscan-io/report-engine/pkg/services"
	"github.com/medscan-io/report-engine/pkg/validator"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.String("validator_model", cfg.Validator.Model),
		zap.Int("pipeline_workers", cfg.Pipeline.Workers))

	db, err := database.NewConnection(context.Background(), &cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	if err := database.RunMigrations(&cfg.Database, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.String("error", logging.SanitizeError(err)))
	}
	if redisClient == nil {
		logger.Info("Document store export disabled: no Redis host configured")
	}

	documentRepo := repositories.NewDocumentRepository(db)
	candidateRepo := repositories.NewCandidateRepository(db)

	validatorClient, err := validator.NewOpenAIClient(&validator.Config{
		Endpoint: cfg.Validator.Endpoint,
		Model:    cfg.Validator.Model,
		APIKey:   cfg.Validator.APIKey,
		Timeout:  cfg.Validator.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create validator client", zap.Error(err))
	}

	registry := extract.NewRegistry(extract.NewGenericStrategy())
	registry.Register("tabular", extract.NewTabularStrategy())

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Validator.MaxAttempts

	documentStore := services.NewRedisDocumentStore(redisClient)
	exportService := services.NewExportService(documentStore, logger)
	reviewService := services.NewReviewService(candidateRepo, exportService, logger)
	mappingService := services.NewMappingService(candidateRepo, logger)
	documentService := services.NewDocumentService(documentRepo, candidateRepo, logger)
	pipelineService := services.NewPipelineService(services.PipelineDeps{
		Documents:  documentRepo,
		Candidates: candidateRepo,
		Strategies: registry,
		Validator:  validatorClient,
		Retry:      retryCfg,
		Logger:     logger,
	})

	workers := services.NewWorkerPool(documentRepo, pipelineService, cfg.Pipeline, logger)
	workers.Start(context.Background())

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewDocumentsHandler(documentService, logger).RegisterRoutes(mux)
	handlers.NewParametersHandler(reviewService, mappingService, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		logger.Info("Starting report-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	workers.Stop()
	logger.Info("Shutdown complete")
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "local" || env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
