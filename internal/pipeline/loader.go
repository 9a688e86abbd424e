package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/storm-data-pros/internal/domain"
)

// MultiLoader writes each batch to a primary sink and then to any number of
// secondary sinks. Only primary failures fail the batch; secondary failures
// are logged, since retrying would re-deliver to the primary.
type MultiLoader struct {
	primary   BatchLoader
	secondary []BatchLoader
	logger    *slog.Logger
}

// NewMultiLoader creates a MultiLoader. Nil secondaries are ignored.
func NewMultiLoader(logger *slog.Logger, primary BatchLoader, secondary ...BatchLoader) *MultiLoader {
	m := &MultiLoader{primary: primary, logger: logger}
	for _, l := range secondary {
		if l != nil {
			m.secondary = append(m.secondary, l)
		}
	}
	return m
}

func (m *MultiLoader) LoadBatch(ctx context.Context, events []domain.OutputEvent) error {
	if err := m.primary.LoadBatch(ctx, events); err != nil {
		return err
	}
	for _, l := range m.secondary {
		if err := l.LoadBatch(ctx, events); err != nil {
			m.logger.Warn("secondary load failed", "error", err, "batch_size", len(events))
		}
	}
	return nil
}
