package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ziwuxx-intake/config"
	"ziwuxx-intake/consumer"
	"ziwuxx-intake/handlers"
	"ziwuxx-intake/models"
	"ziwuxx-intake/monitoring"
	"ziwuxx-intake/service"
	"ziwuxx-intake/utils"
)

const (
	shutdownTimeout = 15 * time.Second
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.Log.Level, cfg.Log.Format, cfg.App.Name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := utils.InitSentry(cfg); err != nil {
			logger.Warn("sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}
	monitoring.Init()

	repo, err := models.Open(cfg.Database)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Warn("error closing database", zap.Error(err))
		}
	}()
	logger.Info("database ready", zap.Bool("postgres", cfg.Database.IsPostgres()))

	var store models.Repository = repo
	if cfg.Redis.Enabled() {
		redisClient, err := connectRedis(cfg.Redis, logger)
		if err != nil {
			logger.Warn("inquiry list cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			store = models.NewCachedRepository(repo, redisClient, cfg.Redis.CacheTTL, logger)
		}
	}

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled() {
		producer, err := utils.NewKafkaProducer(cfg.Kafka)
		if err != nil {
			logger.Warn("inquiry events disabled", zap.Error(err))
		} else {
			defer producer.Close()
			publisher = service.NewKafkaPublisher(producer, cfg.Kafka.Topic)
		}
	}

	svc := service.NewIntakeService(store, publisher, logger,
		service.WithStorageTimeout(cfg.Storage.Timeout),
		service.WithListRetry(cfg.Storage.ListAttempts, cfg.Storage.RetryBackoff),
	)
	// runs before the producer's deferred Close
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Kafka.Enabled() && cfg.Search.URL != "" {
		es, err := utils.NewElasticsearchClient(cfg.Search)
		if err != nil {
			logger.Warn("search indexer disabled", zap.Error(err))
		} else {
			indexer := consumer.NewInquiryIndexer(cfg.Kafka, cfg.Search.Index, es, logger)
			indexer.Start(ctx)
			defer indexer.Stop()
		}
	}

	gin.SetMode(cfg.App.GinMode)
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      handlers.NewRouter(svc, logger, cfg.App.StaticDir),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// connectRedis retries a few times; redis often starts after the API in compose setups.
func connectRedis(cfg config.RedisConfig, logger *zap.Logger) (utils.RedisClient, error) {
	const (
		maxRetries = 5
		retryDelay = 3 * time.Second
	)

	var err error
	for i := 0; i < maxRetries; i++ {
		var client utils.RedisClient
		client, err = utils.NewRedisClient(cfg)
		if err == nil {
			return client, nil
		}
		logger.Warn("failed to connect to redis", zap.Int("attempt", i+1), zap.Error(err))
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("redis unavailable after %d attempts: %w", maxRetries, err)
}
