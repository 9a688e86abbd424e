package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/storm-data-pros/internal/domain"
	"github.com/couchcryptid/storm-data-pros/internal/observability"
	"github.com/couchcryptid/storm-data-pros/internal/pipeline"
	"github.com/couchcryptid/storm-data-pros/internal/pros"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	err error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	if m.err != nil {
		return domain.OutputEvent{}, m.err
	}
	return domain.OutputEvent{Key: raw.Key, Value: raw.Value}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.OutputEvent
	err    error
	calls  int
}

func (m *mockLoader) LoadBatch(_ context.Context, events []domain.OutputEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, events...)
	return nil
}

func newTestMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func rawJob(key string) domain.RawEvent {
	return domain.RawEvent{Key: []byte(key), Value: []byte(`{"id":"` + key + `"}`)}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := rawJob("job-1")

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, ldr.loaded, 1)
	assert.Equal(t, raw.Value, ldr.loaded[0].Value)
	assert.True(t, p.Ready())
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ext := &mockExtractor{}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_TransformErrorCommitsAndSkips(t *testing.T) {
	committed := false
	raw := rawJob("job-2")
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	tfm := &mockTransformer{err: &pros.ShapeMismatchError{}}
	ldr := &mockLoader{}
	metrics := newTestMetrics()

	p := pipeline.New(ext, tfm, ldr, slog.Default(), metrics, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.loaded)
	assert.Zero(t, ldr.calls)
	assert.False(t, p.Ready())
	assert.True(t, committed)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ClassifyErrors.WithLabelValues("shape_mismatch")), 0)
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	var commits atomic.Int32
	batch := make([]domain.RawEvent, 3)
	for i := range batch {
		batch[i] = rawJob("job")
		batch[i].Commit = func(_ context.Context) error {
			commits.Add(1)
			return nil
		}
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{batch}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.Equal(t, int32(3), commits.Load())
	assert.Equal(t, 1, ldr.calls)
}

func TestPipeline_Run_LoadErrorDoesNotCommit(t *testing.T) {
	committed := false
	raw := rawJob("job-3")
	raw.Commit = func(_ context.Context) error {
		committed = true
		return nil
	}

	ext := &mockExtractor{batches: [][]domain.RawEvent{{raw}}}
	ldr := &mockLoader{err: errors.New("broker down")}

	p := pipeline.New(ext, &mockTransformer{}, ldr, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	require.NoError(t, p.Run(ctx))
	assert.False(t, committed)
	assert.False(t, p.Ready())
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("fetch failed")}

	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, slog.Default(), newTestMetrics(), 10)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, p.Run(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
	assert.False(t, p.Ready())
}

func TestMultiLoader(t *testing.T) {
	events := []domain.OutputEvent{{Key: []byte("a")}}

	t.Run("writes primary then secondaries", func(t *testing.T) {
		primary, cache := &mockLoader{}, &mockLoader{}
		m := pipeline.NewMultiLoader(slog.Default(), primary, cache, nil)
		require.NoError(t, m.LoadBatch(context.Background(), events))
		assert.Len(t, primary.loaded, 1)
		assert.Len(t, cache.loaded, 1)
	})

	t.Run("primary failure stops the batch", func(t *testing.T) {
		primary, cache := &mockLoader{err: errors.New("down")}, &mockLoader{}
		m := pipeline.NewMultiLoader(slog.Default(), primary, cache)
		require.Error(t, m.LoadBatch(context.Background(), events))
		assert.Zero(t, cache.calls)
	})

	t.Run("secondary failure is tolerated", func(t *testing.T) {
		primary, cache := &mockLoader{}, &mockLoader{err: errors.New("cache down")}
		m := pipeline.NewMultiLoader(slog.Default(), primary, cache)
		require.NoError(t, m.LoadBatch(context.Background(), events))
		assert.Len(t, primary.loaded, 1)
		assert.Equal(t, 1, cache.calls)
	})
}

func TestErrorReason(t *testing.T) {
	cases := map[string]error{
		"decode":            domain.ErrInvalidJob,
		"shape_mismatch":    &pros.ShapeMismatchError{},
		"invalid_threshold": &pros.ThresholdError{Method: pros.MethodDualTa, Arity: 2},
		"unknown_method":    pros.ErrUnknownMethod,
		"invalid_variables": pros.ErrMissingVariable,
		"invalid_option":    pros.ErrInvalidOption,
		"other":             errors.New("boom"),
	}
	for want, err := range cases {
		assert.Equal(t, want, pipeline.ErrorReason(err))
	}
}
