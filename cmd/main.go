/**
 * @description
 * Entry point for the billing service.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/repotrack/billing-service/internal/api"
	"github.com/repotrack/billing-service/internal/app"
	"github.com/repotrack/billing-service/internal/config"
	"github.com/repotrack/billing-service/internal/jobs"
	"github.com/repotrack/billing-service/internal/store"
	"github.com/repotrack/billing-service/pkg/blobstore"
	"github.com/repotrack/billing-service/pkg/rabbitmq"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	scope, err := app.ParseScopePolicy(cfg.HeadcountScope)
	if err != nil {
		logger.Error("invalid headcount scope", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pgConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	pgConfig.MaxConns = 100
	pgConfig.MinConns = 20
	pgConfig.MaxConnLifetime = 30 * time.Minute
	pgConfig.MaxConnIdleTime = 5 * time.Minute
	pgConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	if err := store.EnsureSchema(ctx, dbpool); err != nil {
		logger.Warn("failed ensuring tables (may already exist)", "error", err)
	}

	repository := store.NewPostgresRepository(dbpool)
	directory := store.NewPostgresDirectory(dbpool)

	blobs, err := blobstore.NewDiskStore(cfg.BlobDir)
	if err != nil {
		logger.Error("unable to initialize blob store", "error", err, "dir", cfg.BlobDir)
		os.Exit(1)
	}

	var publisher rabbitmq.Publisher = &rabbitmq.NoopPublisher{Logger: logger}
	if cfg.RabbitMQURL != "" {
		if producer, err := rabbitmq.NewProducer(cfg.RabbitMQURL); err == nil {
			publisher = producer
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}
	defer publisher.Close()

	service := app.NewService(repository, directory, blobs, publisher, logger, app.Options{
		Timezone:       cfg.BusinessTimezone,
		HeadcountScope: scope,
		ProofRetention: time.Duration(cfg.ProofRetentionDays) * 24 * time.Hour,
	})

	scheduler := jobs.NewScheduler(jobs.NewJobs(service, logger), logger, cfg)
	scheduler.Start()

	handler := api.NewHandler(service)
	router := api.NewRouter(handler, cfg.JWKSURL, cfg.InternalAPIKey)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	<-scheduler.Stop().Done()
	logger.Info("server stopped")
}
