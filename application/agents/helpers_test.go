package agents

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
	domainservices "dreamcatcher/domain/services"
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

type submitted struct {
	agentID string
	task    Task
}

type recordingSubmitter struct {
	mu    sync.Mutex
	tasks []submitted
	err   error
}

func (s *recordingSubmitter) Submit(agentID string, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, submitted{agentID: agentID, task: task})
	return nil
}

func (s *recordingSubmitter) agents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.agentID
	}
	return out
}

func (s *recordingSubmitter) last(agentID string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.tasks) - 1; i >= 0; i-- {
		if s.tasks[i].agentID == agentID {
			return s.tasks[i].task, true
		}
	}
	return Task{}, false
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []*entities.Notification
}

func (n *recordingNotifier) Notify(ctx context.Context, userID string, level entities.NotificationLevel, title, message string, opts ports.NotifyOptions) (*entities.Notification, error) {
	note, err := entities.NewNotification(userID, level, title, message, 0)
	if err != nil {
		return nil, err
	}
	note.Kind = opts.Kind
	note.Data = opts.Data
	n.mu.Lock()
	n.notes = append(n.notes, note)
	n.mu.Unlock()
	return note, nil
}

func (n *recordingNotifier) all() []*entities.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*entities.Notification(nil), n.notes...)
}

// stubAI returns fixed answers.
type stubAI struct {
	viability *ports.Viability
	err       error
}

func (s *stubAI) Available() bool { return true }
func (s *stubAI) Model() string   { return "gpt-4o-mini" }

func (s *stubAI) ClassifyIdea(ctx context.Context, content string) (entities.Classification, error) {
	if s.err != nil {
		return entities.Classification{}, s.err
	}
	return entities.Classification{Category: valueobjects.CategoryCreative, Urgency: 40, Novelty: 90, Tags: []string{"stub"}, AIAssisted: true}, nil
}

func (s *stubAI) ExpandIdea(ctx context.Context, content, category string) (string, error) {
	return "general", s.err
}

func (s *stubAI) SpecializedExpansion(ctx context.Context, content, category string) (string, error) {
	return "specialized", s.err
}

func (s *stubAI) VisualPrompt(ctx context.Context, content, style string) (string, error) {
	return "stub prompt " + style, s.err
}

func (s *stubAI) AssessViability(ctx context.Context, content, category string, expansions []string) (*ports.Viability, error) {
	if s.err != nil {
		return nil, s.err
	}
	v := *s.viability
	return &v, nil
}

type stubImages struct {
	available bool
	err       error
}

func (s *stubImages) Available(ctx context.Context) bool { return s.available }

func (s *stubImages) Generate(ctx context.Context, prompt, style string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []string{style + ".png"}, nil
}

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	next      *recordingSubmitter
	notifier  *recordingNotifier
	scorer    *domainservices.SharedScorer
	deps      Deps
}

func newFixture() *fixture {
	store := memory.NewStore()
	pub := &recordingPublisher{}
	return &fixture{
		store:     store,
		publisher: pub,
		next:      &recordingSubmitter{},
		notifier:  &recordingNotifier{},
		scorer:    domainservices.NewSharedScorer(domainservices.DefaultRules()),
		deps: Deps{
			Logs:      store,
			Publisher: pub,
			Logger:    zap.NewNop(),
		},
	}
}

func (f *fixture) capture(t *testing.T, userID, content string, source valueobjects.SourceType) *entities.Idea {
	t.Helper()
	idea, err := entities.NewIdea(entities.CaptureInput{
		UserID:     userID,
		Content:    content,
		SourceType: source,
		Urgency:    50,
	})
	require.NoError(t, err)
	idea.MarkEventsAsCommitted()
	require.NoError(t, f.store.SaveIdea(context.Background(), idea))
	return idea
}
