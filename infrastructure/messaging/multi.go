package messaging

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/events"
)

// MultiPublisher hands every event to each of its publishers. A failing
// publisher does not stop the others.
type MultiPublisher struct {
	publishers []ports.EventPublisher
	logger     *zap.Logger
}

var _ ports.EventPublisher = (*MultiPublisher)(nil)

// NewMultiPublisher creates a fan-out publisher. Nil publishers are skipped.
func NewMultiPublisher(logger *zap.Logger, publishers ...ports.EventPublisher) *MultiPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &MultiPublisher{logger: logger}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Add appends a publisher. Call it only while wiring, before any Publish.
func (m *MultiPublisher) Add(p ports.EventPublisher) {
	if p != nil {
		m.publishers = append(m.publishers, p)
	}
}

// Len returns the number of publishers.
func (m *MultiPublisher) Len() int { return len(m.publishers) }

// Publish delivers evts to every publisher and joins their errors.
func (m *MultiPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	if len(evts) == 0 {
		return nil
	}
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, evts...); err != nil {
			m.logger.Warn("Event publisher failed", zap.Int("events", len(evts)), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
