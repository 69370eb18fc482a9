package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/papertrade/papertrade/internal/api"
	"github.com/papertrade/papertrade/internal/config"
	"github.com/papertrade/papertrade/internal/database"
	"github.com/papertrade/papertrade/internal/engine"
	"github.com/papertrade/papertrade/internal/kafka"
	"github.com/papertrade/papertrade/internal/logging"
	"github.com/papertrade/papertrade/internal/quotes"
	"github.com/papertrade/papertrade/internal/scheduler"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	provider := quotes.NewProvider(cfg.Quotes.BaseURL, cfg.Quotes.APIKey, cfg.Quotes.Timeout, cfg.Quotes.MaxAttempts)
	quoteSource := quotes.NewCachedSource(provider, redisClient, cfg.Quotes.CacheTTL)

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic)
	defer producer.Close()

	eng := engine.New(db, quoteSource, producer, logger)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TicksTopic, cfg.Kafka.GroupID, eng, logger)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			logger.Error("kafka consumer stopped", "error", err)
		}
	}()

	sweep := scheduler.New(db, quoteSource, eng, cfg.Scheduler.Interval, cfg.Quotes.Timeout, logger)
	go sweep.Run(ctx)

	handler := api.NewHandler(db, eng, logger)
	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      api.SetupRoutes(handler),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "error", err)
	}
}
