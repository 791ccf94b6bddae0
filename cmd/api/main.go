package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/docs"
	"github.com/crimelens/crime-insights-service/internal/config"
	"github.com/crimelens/crime-insights-service/internal/handler"
	"github.com/crimelens/crime-insights-service/internal/logger"
	"github.com/crimelens/crime-insights-service/internal/metrics"
	"github.com/crimelens/crime-insights-service/internal/prediction"
	"github.com/crimelens/crime-insights-service/internal/query"
	"github.com/crimelens/crime-insights-service/internal/repository/clickhouse"
	"github.com/crimelens/crime-insights-service/internal/service"
)

// @title Crime Insights Service API
// @version 1.0
// @description Upcoming events enriched with crime predictions, and crime analytics by location
// @host localhost:8000
// @BasePath /
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment, cfg.Service.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting API service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	// Configure Swagger host dynamically
	docs.SwaggerInfo.Host = cfg.Service.Host

	ctx := context.Background()

	// Initialize ClickHouse client; the API only reads
	clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, true, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func(clickhouseClient *clickhouse.Client) {
		if err := clickhouseClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}(clickhouseClient)

	repo, err := clickhouse.NewRepository(clickhouseClient, log)
	if err != nil {
		log.Fatal("Failed to create repository", zap.Error(err))
	}

	builder, err := query.NewBuilder(cfg.ClickHouse.EventsTable, cfg.ClickHouse.CrimesTable)
	if err != nil {
		log.Fatal("Failed to create query builder", zap.Error(err))
	}

	recorder := metrics.NewRecorder(nil)

	// Initialize prediction engine
	predictor, err := prediction.NewClient(cfg.Predictor, prediction.NewHTTPClient(), log)
	if err != nil {
		log.Fatal("Failed to create prediction client", zap.Error(err))
	}
	engine := prediction.NewEngine(predictor, cfg.Predictor.Timeout(), recorder, log)

	queryService := service.NewQueryService(builder, repo, engine, service.Options{
		DefaultLimit: cfg.Service.DefaultLimit,
		MaxLimit:     cfg.Service.MaxLimit,
		QueryTimeout: cfg.Service.QueryTimeout(),
	}, recorder, log)

	h := handler.NewHandler(queryService, recorder, handler.Options{
		RateLimitPerMinute: cfg.Service.RateLimitPerMinute,
		RateLimitBurst:     cfg.Service.RateLimitBurst,
	}, log)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Service.APIPort),
		Handler: h,
	}

	go func() {
		log.Info("API server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down API server gracefully")

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Service.ShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("API server shutdown failed", zap.Error(err))
	}
}
