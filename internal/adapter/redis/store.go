package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-pros/internal/config"
	"github.com/couchcryptid/storm-data-pros/internal/domain"
	"github.com/couchcryptid/storm-data-pros/internal/observability"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "pros:result:"

const (
	fieldContentType = "content_type"
	fieldPayload     = "payload"
)

// ErrNotFound is returned by Get for an unknown or expired result.
var ErrNotFound = domain.ErrResultNotFound

// Store caches classified grids in Redis, each under pros:result:<id> as a
// hash of its content type and encoded payload. It implements
// pipeline.BatchLoader.
type Store struct {
	client  *goredis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStore connects to the configured Redis instance.
func NewStore(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Store {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return New(client, cfg.ResultTTL, logger, metrics)
}

// New wraps an existing client.
func New(client *goredis.Client, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{client: client, ttl: ttl, logger: logger, metrics: metrics}
}

func resultKey(id string) string {
	return keyPrefix + id
}

// LoadBatch stores every encoded result in one pipeline round trip.
func (s *Store) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if len(events) == 0 {
		return nil
	}
	_, err := s.client.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, e := range events {
			key := resultKey(string(e.Key))
			p.HSet(ctx, key,
				fieldContentType, e.Headers[domain.HeaderContentType],
				fieldPayload, e.Value,
			)
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		s.metrics.ResultCacheWrites.WithLabelValues(observability.CacheOutcomeError).Add(float64(len(events)))
		return fmt.Errorf("cache results: %w", err)
	}
	s.metrics.ResultCacheWrites.WithLabelValues(observability.CacheOutcomeStored).Add(float64(len(events)))
	return nil
}

// Put stores a single result encoded as JSON.
func (s *Store) Put(ctx context.Context, grid domain.ClassifiedGrid) error {
	out, err := domain.EncodeResult(grid, domain.EncodingJSON)
	if err != nil {
		return err
	}
	return s.LoadBatch(ctx, []domain.OutputEvent{out})
}

// Get returns a cached result, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (domain.ClassifiedGrid, error) {
	fields, err := s.client.HGetAll(ctx, resultKey(id)).Result()
	if err != nil {
		return domain.ClassifiedGrid{}, fmt.Errorf("get result %s: %w", id, err)
	}
	payload, ok := fields[fieldPayload]
	if !ok {
		return domain.ClassifiedGrid{}, ErrNotFound
	}
	enc := domain.EncodingForContentType(fields[fieldContentType])
	return domain.DecodeResult([]byte(payload), enc)
}

// CheckReadiness pings the server.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
