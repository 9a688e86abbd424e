package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/storm-data-pros/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-data-pros/internal/adapter/kafka"
	"github.com/couchcryptid/storm-data-pros/internal/adapter/memory"
	redisadapter "github.com/couchcryptid/storm-data-pros/internal/adapter/redis"
	"github.com/couchcryptid/storm-data-pros/internal/config"
	"github.com/couchcryptid/storm-data-pros/internal/observability"
	"github.com/couchcryptid/storm-data-pros/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(cfg, logger, metrics)

	// Result store (feature-flagged via REDIS_ENABLED / REDIS_ADDR).
	var (
		store     httpadapter.ResultStore
		cacheLoad pipeline.BatchLoader
		redis     *redisadapter.Store
	)
	if cfg.RedisEnabled {
		redis = redisadapter.NewStore(cfg, logger, metrics)
		store, cacheLoad = redis, redis
		metrics.ResultCacheEnabled.Set(1)
		logger.Info("redis result cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.ResultTTL)
	} else {
		mem := memory.NewStore(cfg.ResultCacheSize)
		store, cacheLoad = mem, mem
		logger.Info("redis result cache disabled, using in-memory store", "size", cfg.ResultCacheSize)
	}

	loader := pipeline.NewMultiLoader(logger, writer, cacheLoad)
	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize)

	ready := observability.Readiness{p}
	if redis != nil {
		ready = append(ready, redis)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, ready, transformer, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"source_topic", cfg.KafkaSourceTopic,
		"sink_topic", cfg.KafkaSinkTopic,
		"default_method", cfg.DefaultMethod,
		"workers", cfg.Workers,
		"encoding", string(cfg.OutputEncoding),
	)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start classification pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if redis != nil {
		if err := redis.Close(); err != nil {
			logger.Error("redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
