package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
	"dreamcatcher/infrastructure/persistence/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.GetEventType()
	}
	return out
}

func (p *recordingPublisher) all() []events.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.DomainEvent(nil), p.events...)
}

type submission struct {
	agentID string
	task    ports.AgentTask
}

type recordingSubmitter struct {
	mu    sync.Mutex
	err   error
	tasks []submission
}

func (s *recordingSubmitter) Submit(agentID string, task ports.AgentTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, submission{agentID: agentID, task: task})
	return nil
}

func (s *recordingSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *recordingSubmitter) last() submission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[len(s.tasks)-1]
}

func captureIdea(t *testing.T, store *memory.Store, userID, content string) *entities.Idea {
	t.Helper()
	idea, err := entities.NewIdea(entities.CaptureInput{
		UserID:     userID,
		Content:    content,
		SourceType: valueobjects.SourceText,
		Urgency:    50,
	})
	require.NoError(t, err)
	idea.MarkEventsAsCommitted()
	require.NoError(t, store.SaveIdea(context.Background(), idea))
	return idea
}
