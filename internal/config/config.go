package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/storm-data-pros/internal/domain"
	"github.com/couchcryptid/storm-data-pros/internal/pros"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const maxWorkers = 64

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Classification defaults.
	DefaultMethod        string
	Workers              int
	IntensityBreakpoints []float64
	OutputEncoding       domain.Encoding

	// Redis result cache.
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ResultTTL     time.Duration

	// In-memory result store, used when Redis is disabled.
	ResultCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	method := strings.ToLower(sharedcfg.EnvOrDefault("PROS_DEFAULT_METHOD", string(pros.MethodKS)))
	if !slices.Contains(pros.MethodNames, pros.MethodName(method)) {
		return nil, fmt.Errorf("invalid PROS_DEFAULT_METHOD %q", method)
	}

	workers, err := strconv.Atoi(sharedcfg.EnvOrDefault("PROS_WORKERS", "1"))
	if err != nil || workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("invalid PROS_WORKERS: must be 1-%d", maxWorkers)
	}

	breakpoints, err := parseBreakpoints(sharedcfg.EnvOrDefault("PROS_INTENSITY_BREAKPOINTS", "1,5,10,15"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROS_INTENSITY_BREAKPOINTS: %w", err)
	}

	encoding, err := domain.ParseEncoding(sharedcfg.EnvOrDefault("PROS_OUTPUT_ENCODING", "json"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROS_OUTPUT_ENCODING: %w", err)
	}

	resultTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("RESULT_TTL", "24h"))
	if err != nil || resultTTL <= 0 {
		return nil, errors.New("invalid RESULT_TTL: must be a positive duration")
	}

	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB: must be a non-negative integer")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("RESULT_CACHE_SIZE", "256"))
	if err != nil || cacheSize < 1 {
		return nil, errors.New("invalid RESULT_CACHE_SIZE: must be a positive integer")
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	redisEnabled := redisAddr != ""
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		redisEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "precipitation-grid-jobs"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "precipitation-type-grids"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-data-pros"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DefaultMethod:        method,
		Workers:              workers,
		IntensityBreakpoints: breakpoints,
		OutputEncoding:       encoding,

		RedisEnabled:  redisEnabled,
		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,
		ResultTTL:     resultTTL,

		ResultCacheSize: cacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.RedisEnabled && cfg.RedisAddr == "" {
		return nil, errors.New("REDIS_ENABLED is true but REDIS_ADDR is not set")
	}

	return cfg, nil
}

// EngineOptions returns the classification options shared by the pipeline
// and the HTTP API.
func (c *Config) EngineOptions() []pros.Option {
	return []pros.Option{
		pros.WithWorkers(c.Workers),
		pros.WithBreakpoints(c.IntensityBreakpoints...),
	}
}

func parseBreakpoints(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("breakpoint %q: %w", p, err)
		}
		out = append(out, v)
	}
	if err := pros.ValidateBreakpoints(out); err != nil {
		return nil, err
	}
	return out, nil
}
