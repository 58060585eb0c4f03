package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hayashida/spotbot/cmd/mainconfig"
	"github.com/hayashida/spotbot/internal/api/router"
	"github.com/hayashida/spotbot/internal/catalog"
	"github.com/hayashida/spotbot/internal/channels/line"
	appconfig "github.com/hayashida/spotbot/internal/config"
	"github.com/hayashida/spotbot/internal/conversation"
	"github.com/hayashida/spotbot/internal/events"
	"github.com/hayashida/spotbot/internal/http/handlers"
	observemetrics "github.com/hayashida/spotbot/internal/observability/metrics"
	"github.com/hayashida/spotbot/internal/places"
	"github.com/hayashida/spotbot/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting spotbot API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	// Conversation store: DynamoDB by default, in-memory for local runs.
	var repo conversation.Repository
	if cfg.UseMemoryStore {
		logger.Warn("using in-memory conversation store; state is lost on restart")
		repo = conversation.NewInMemoryRepository()
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		dynamoClient := dynamodb.NewFromConfig(awsCfg)
		repo = conversation.NewDynamoRepository(dynamoClient, cfg.ConversationsTable, cfg.ConversationTTL, logger)
	}

	// Webhook dedup store (optional; without it every redelivery reprocesses).
	var processed *events.ProcessedStore
	if cfg.RedisAddr != "" {
		redisOptions := &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		}
		if cfg.RedisTLS {
			redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		redisClient := redis.NewClient(redisOptions)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not available, webhook dedup disabled", "error", err)
		} else {
			processed = events.NewProcessedStore(redisClient, cfg.ConversationTTL)
		}
	}

	fetcher, err := places.NewGoogleClient(places.GoogleConfig{
		BaseURL: cfg.GooglePlacesBaseURL,
		APIKey:  cfg.GoogleMapsAPIKey,
		Timeout: cfg.SearchTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to build places client", "error", err)
		os.Exit(1)
	}

	botMetrics := observemetrics.NewBotMetrics(nil)

	manager := conversation.NewManager(conversation.ManagerConfig{
		Repository: repo,
		Catalog:    catalog.Default(),
		Fetcher:    fetcher,
		MaxResults: cfg.SearchMaxResults,
		Logger:     logger,
		Metrics:    botMetrics,
	})

	lineClient := line.NewClient(cfg.LineChannelAccessToken)
	if cfg.LineAPIBaseURL != "" {
		lineClient.SetAPIBase(cfg.LineAPIBaseURL)
	}

	webhookCfg := handlers.LineWebhookConfig{
		ChannelSecret: cfg.LineChannelSecret,
		Manager:       manager,
		Client:        lineClient,
		Logger:        logger,
		Metrics:       botMetrics,
	}
	if processed != nil {
		webhookCfg.Processed = processed
	}
	webhookHandler := handlers.NewLineWebhookHandler(webhookCfg)

	// Setup router
	r := router.New(&router.Config{
		Logger:         logger,
		LineWebhook:    webhookHandler,
		MetricsHandler: promhttp.Handler(),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
