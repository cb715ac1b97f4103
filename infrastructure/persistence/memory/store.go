package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/services"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Store is an in-memory implementation of ports.Store used in tests and when
// no database is configured. Everything is lost on restart.
type Store struct {
	mu         sync.RWMutex
	ideas      map[string]*entities.Idea
	embeddings map[string][]float32
	expansions map[string][]entities.Expansion
	visuals    map[string][]entities.Visual
	proposals  map[string]*entities.Proposal
	logs       []*entities.AgentLog
	settings   map[string]*entities.UserSettings
	tagColors  map[string]string
}

var _ ports.Store = (*Store)(nil)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		ideas:      make(map[string]*entities.Idea),
		embeddings: make(map[string][]float32),
		expansions: make(map[string][]entities.Expansion),
		visuals:    make(map[string][]entities.Visual),
		proposals:  make(map[string]*entities.Proposal),
		settings:   make(map[string]*entities.UserSettings),
		tagColors:  make(map[string]string),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// --- Ideas ---

func (s *Store) SaveIdea(ctx context.Context, idea *entities.Idea) error {
	if idea == nil || idea.ID.IsZero() {
		return pkgerrors.NewValidation("idea must have an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneIdea(idea)
	_, stored.HasEmbedding = s.embeddings[idea.ID.String()]
	s.ideas[idea.ID.String()] = stored
	for _, t := range idea.Tags {
		if _, ok := s.tagColors[t]; !ok {
			s.tagColors[t] = entities.DefaultTagColor
		}
	}
	return nil
}

func (s *Store) FindIdea(ctx context.Context, id valueobjects.IdeaID) (*entities.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idea, ok := s.ideas[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFound("idea").WithCode(pkgerrors.CodeIdeaNotFound)
	}
	return cloneIdea(idea), nil
}

func (s *Store) ListIdeas(ctx context.Context, filter ports.IdeaFilter) ([]*entities.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	tag := strings.ToLower(strings.TrimSpace(filter.Tag))

	var out []*entities.Idea
	for _, idea := range s.ideas {
		if filter.UserID != "" && idea.UserID != filter.UserID {
			continue
		}
		if !filter.IncludeArchived && idea.Archived {
			continue
		}
		if filter.Category != "" && idea.Category != filter.Category {
			continue
		}
		if filter.SourceType != "" && idea.SourceType != filter.SourceType {
			continue
		}
		if filter.MinUrgency != nil && idea.UrgencyScore < *filter.MinUrgency {
			continue
		}
		if tag != "" && !idea.HasTag(tag) {
			continue
		}
		if search != "" && !matchesSearch(idea, search) {
			continue
		}
		out = append(out, idea)
	}

	sortNewestFirst(out)
	return page(out, filter.Skip, filter.Limit), nil
}

func (s *Store) DeleteIdea(ctx context.Context, id valueobjects.IdeaID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := id.String()
	if _, ok := s.ideas[key]; !ok {
		return pkgerrors.NewNotFound("idea").WithCode(pkgerrors.CodeIdeaNotFound)
	}
	delete(s.ideas, key)
	delete(s.embeddings, key)
	delete(s.expansions, key)
	delete(s.visuals, key)
	for pid, p := range s.proposals {
		if p.IdeaID.Equals(id) {
			delete(s.proposals, pid)
		}
	}
	return nil
}

func (s *Store) FindStale(ctx context.Context, before time.Time, minUrgency float64, limit int) ([]*entities.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Idea
	for _, idea := range s.ideas {
		if idea.Archived || !idea.UpdatedAt.Before(before) || idea.UrgencyScore <= minUrgency {
			continue
		}
		out = append(out, idea)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return page(out, 0, limit), nil
}

func (s *Store) FindDormant(ctx context.Context, userID string, before time.Time, limit int) ([]*entities.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Idea
	for _, idea := range s.ideas {
		if userID != "" && idea.UserID != userID {
			continue
		}
		if idea.Archived || !idea.CreatedAt.Before(before) {
			continue
		}
		out = append(out, idea)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, 0, limit), nil
}

func (s *Store) IdeaStats(ctx context.Context, userID string) (ports.IdeaStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ports.IdeaStats{
		BySource:       make(map[string]int),
		ByCategory:     make(map[string]int),
		ByStatus:       make(map[string]int),
		UrgencyBuckets: map[string]int{"low": 0, "medium": 0, "high": 0},
	}
	for _, idea := range s.ideas {
		if userID != "" && idea.UserID != userID {
			continue
		}
		stats.Total++
		stats.BySource[string(idea.SourceType)]++
		if idea.Category != "" {
			stats.ByCategory[string(idea.Category)]++
		}
		stats.ByStatus[string(idea.Status)]++
		stats.UrgencyBuckets[services.UrgencyBucket(idea.UrgencyScore)]++
		if idea.UrgencyScore > 80 {
			stats.HighUrgency++
		}
		if idea.Archived {
			stats.Archived++
		}
		if idea.Favorite {
			stats.Favorites++
		}
	}
	return stats, nil
}

func (s *Store) ListTags(ctx context.Context) ([]entities.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, idea := range s.ideas {
		for _, t := range idea.Tags {
			counts[t]++
		}
	}
	tags := make([]entities.Tag, 0, len(s.tagColors))
	for name, color := range s.tagColors {
		tags = append(tags, entities.Tag{Name: name, Color: color, IdeaCount: counts[name]})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

// --- Embeddings ---

func (s *Store) SaveEmbedding(ctx context.Context, id valueobjects.IdeaID, vector []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idea, ok := s.ideas[id.String()]
	if !ok {
		return pkgerrors.NewNotFound("idea").WithCode(pkgerrors.CodeIdeaNotFound)
	}
	s.embeddings[id.String()] = append([]float32(nil), vector...)
	idea.HasEmbedding = true
	return nil
}

func (s *Store) GetEmbedding(ctx context.Context, id valueobjects.IdeaID) ([]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.embeddings[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFound("embedding")
	}
	return append([]float32(nil), v...), nil
}

func (s *Store) SearchSimilar(ctx context.Context, userID string, vector []float32, limit int, threshold float64, exclude valueobjects.IdeaID) ([]ports.ScoredIdea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []ports.ScoredIdea
	for key, v := range s.embeddings {
		idea := s.ideas[key]
		if idea == nil || idea.Archived || (userID != "" && idea.UserID != userID) {
			continue
		}
		if !exclude.IsZero() && idea.ID.Equals(exclude) {
			continue
		}
		sim := services.Similarity(vector, v)
		if sim < threshold {
			continue
		}
		hits = append(hits, ports.ScoredIdea{Idea: cloneIdea(idea), Similarity: sim})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Store) FindMissingEmbeddings(ctx context.Context, limit int) ([]*entities.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Idea
	for key, idea := range s.ideas {
		if idea.Archived || idea.Status != valueobjects.StatusCompleted {
			continue
		}
		if _, ok := s.embeddings[key]; ok {
			continue
		}
		out = append(out, idea)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return page(out, 0, limit), nil
}

func (s *Store) ClearEmbeddings(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.embeddings))
	s.embeddings = make(map[string][]float32)
	for _, idea := range s.ideas {
		idea.HasEmbedding = false
	}
	return n, nil
}

func (s *Store) CountEmbeddings(ctx context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ideas), len(s.embeddings), nil
}

// --- Expansions and visuals ---

func (s *Store) SaveExpansion(ctx context.Context, e entities.Expansion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expansions[e.IdeaID.String()] = append(s.expansions[e.IdeaID.String()], e)
	return nil
}

func (s *Store) ListExpansions(ctx context.Context, ideaID valueobjects.IdeaID) ([]entities.Expansion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Expansion(nil), s.expansions[ideaID.String()]...), nil
}

func (s *Store) SaveVisual(ctx context.Context, v entities.Visual) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visuals[v.IdeaID.String()] = append(s.visuals[v.IdeaID.String()], v)
	return nil
}

func (s *Store) ListVisuals(ctx context.Context, ideaID valueobjects.IdeaID) ([]entities.Visual, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Visual(nil), s.visuals[ideaID.String()]...), nil
}

// --- Proposals ---

func (s *Store) SaveProposal(ctx context.Context, p *entities.Proposal) error {
	if p == nil || p.ID == "" {
		return pkgerrors.NewValidation("proposal must have an ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[p.ID] = cloneProposal(p)
	return nil
}

func (s *Store) FindProposal(ctx context.Context, id string) (*entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proposals[id]
	if !ok {
		return nil, pkgerrors.NewNotFound("proposal").WithCode(pkgerrors.CodeProposalNotFound)
	}
	return cloneProposal(p), nil
}

func (s *Store) ListProposals(ctx context.Context, filter ports.ProposalFilter) ([]*entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.Proposal
	for _, p := range s.proposals {
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if !filter.IdeaID.IsZero() && !p.IdeaID.Equals(filter.IdeaID) {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, cloneProposal(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	skip, limit := filter.Skip, filter.Limit
	if skip > len(out) {
		return nil, nil
	}
	out = out[skip:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CountProposals(ctx context.Context, status valueobjects.ProposalStatus) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.proposals {
		if status == "" || p.Status == status {
			n++
		}
	}
	return n, nil
}

// --- Agent logs ---

func (s *Store) SaveAgentLog(ctx context.Context, log *entities.AgentLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := *log
	s.logs = append(s.logs, &entry)
	return nil
}

func (s *Store) ListAgentLogs(ctx context.Context, agentID string, limit int) ([]*entities.AgentLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*entities.AgentLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		if agentID != "" && s.logs[i].AgentID != agentID {
			continue
		}
		entry := *s.logs[i]
		out = append(out, &entry)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) DeleteAgentLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.logs[:0]
	var removed int64
	for _, l := range s.logs {
		if l.StartedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	s.logs = kept
	return removed, nil
}

// --- Settings ---

func (s *Store) GetSettings(ctx context.Context, userID string) (*entities.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	us, ok := s.settings[userID]
	if !ok {
		return &entities.UserSettings{UserID: userID, Values: map[string]interface{}{}}, nil
	}
	return cloneSettings(us), nil
}

func (s *Store) SaveSettings(ctx context.Context, settings *entities.UserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settings.UserID] = cloneSettings(settings)
	return nil
}

func (s *Store) DeleteSettings(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, userID)
	return nil
}

// --- helpers ---

func cloneIdea(i *entities.Idea) *entities.Idea {
	c := *i
	c.Tags = append([]string(nil), i.Tags...)
	c.MarkEventsAsCommitted()
	return &c
}

func cloneProposal(p *entities.Proposal) *entities.Proposal {
	c := *p
	c.Tasks = append([]entities.ProposalTask(nil), p.Tasks...)
	c.MarkEventsAsCommitted()
	return &c
}

func cloneSettings(us *entities.UserSettings) *entities.UserSettings {
	c := &entities.UserSettings{UserID: us.UserID, UpdatedAt: us.UpdatedAt, Values: make(map[string]interface{}, len(us.Values))}
	for k, v := range us.Values {
		c.Values[k] = v
	}
	return c
}

func matchesSearch(idea *entities.Idea, term string) bool {
	return strings.Contains(strings.ToLower(idea.ContentRaw), term) ||
		strings.Contains(strings.ToLower(idea.ContentTranscribed), term) ||
		strings.Contains(strings.ToLower(idea.ContentProcessed), term)
}

func sortNewestFirst(ideas []*entities.Idea) {
	sort.Slice(ideas, func(i, j int) bool { return ideas[i].CreatedAt.After(ideas[j].CreatedAt) })
}

func page(ideas []*entities.Idea, skip, limit int) []*entities.Idea {
	if skip > len(ideas) {
		return nil
	}
	ideas = ideas[skip:]
	if limit > 0 && len(ideas) > limit {
		ideas = ideas[:limit]
	}
	out := make([]*entities.Idea, len(ideas))
	for i, idea := range ideas {
		out[i] = cloneIdea(idea)
	}
	return out
}
