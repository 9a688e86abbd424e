package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/couchcryptid/storm-data-pros/internal/config"
	"github.com/couchcryptid/storm-data-pros/internal/domain"
	"github.com/couchcryptid/storm-data-pros/internal/observability"
	"github.com/couchcryptid/storm-data-pros/internal/pros"
)

// GridTransformer decodes jobs, classifies them and encodes the results.
type GridTransformer struct {
	defaultMethod string
	encoding      domain.Encoding
	opts          []pros.Option
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewTransformer creates a GridTransformer from the classification settings in cfg.
func NewTransformer(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *GridTransformer {
	return &GridTransformer{
		defaultMethod: cfg.DefaultMethod,
		encoding:      cfg.OutputEncoding,
		opts:          cfg.EngineOptions(),
		logger:        logger,
		metrics:       metrics,
	}
}

// DefaultMethod is the method applied to jobs that name none.
func (t *GridTransformer) DefaultMethod() string { return t.defaultMethod }

func (t *GridTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	job, err := domain.ParseJob(raw, t.defaultMethod)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	grid, err := t.Classify(ctx, job)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	return domain.EncodeResult(grid, t.encoding)
}

// Classify runs one job through the engine and records its metrics.
func (t *GridTransformer) Classify(ctx context.Context, job domain.GridJob) (domain.ClassifiedGrid, error) {
	if err := ctx.Err(); err != nil {
		return domain.ClassifiedGrid{}, err
	}

	logger := t.logger.With("job_id", job.ID)
	opts := append(slices.Clone(t.opts), pros.WithLogger(logger))

	start := time.Now()
	grid, notices, err := domain.ClassifyJob(job, opts...)
	if err != nil {
		return domain.ClassifiedGrid{}, err
	}

	t.metrics.ClassifyDuration.WithLabelValues(grid.Method).Observe(time.Since(start).Seconds())
	t.metrics.CellsClassified.WithLabelValues(grid.Method).Add(float64(grid.Rows * grid.Cols))
	for _, n := range notices {
		if n.Code == pros.NoticeMissingElevation {
			t.metrics.MissingElevation.Inc()
		}
	}

	logger.Debug("job classified",
		"method", grid.Method,
		"rows", grid.Rows,
		"cols", grid.Cols,
		"masked", grid.Combined != nil,
	)
	return grid, nil
}

// ErrorReason maps a classification error to a short metrics label.
func ErrorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidJob):
		return "decode"
	case errors.Is(err, pros.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, pros.ErrInvalidThreshold):
		return "invalid_threshold"
	case errors.Is(err, pros.ErrUnknownMethod):
		return "unknown_method"
	case errors.Is(err, pros.ErrInvalidVariables), errors.Is(err, pros.ErrMissingVariable):
		return "invalid_variables"
	case errors.Is(err, pros.ErrInvalidOption):
		return "invalid_option"
	default:
		return "other"
	}
}
