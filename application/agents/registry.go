package agents

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"dreamcatcher/domain/core/entities"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Registry holds the agents by ID.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]Agent
	logger *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		agents: make(map[string]Agent),
		logger: logger,
	}
}

// Register adds an agent. IDs must be unique.
func (r *Registry) Register(agent Agent) error {
	if agent == nil {
		return pkgerrors.NewValidation("agent cannot be nil")
	}
	id := agent.Info().ID
	if id == "" {
		return pkgerrors.NewValidation("agent ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.agents[id]; exists {
		return pkgerrors.NewConflict("agent already registered: " + id)
	}
	r.agents[id] = agent

	r.logger.Info("Registered agent",
		zap.String("agent", id),
		zap.String("name", agent.Info().Name),
	)
	return nil
}

// Get returns the agent with id.
func (r *Registry) Get(id string) (Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, pkgerrors.NewNotFound("agent").WithDetail("agent_id", id)
	}
	return agent, nil
}

// List returns the agents sorted by ID. With activeOnly set, inactive agents
// are left out.
func (r *Registry) List(activeOnly bool) []Agent {
	r.mu.RLock()
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		if activeOnly && !a.Stats().Active {
			continue
		}
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Info().ID < out[j].Info().ID })
	return out
}

// Status returns the stats of every agent, sorted by ID.
func (r *Registry) Status() []entities.AgentStats {
	agents := r.List(false)
	out := make([]entities.AgentStats, len(agents))
	for i, a := range agents {
		out[i] = a.Stats()
	}
	return out
}

// Dispatch runs task on the agent synchronously.
func (r *Registry) Dispatch(ctx context.Context, agentID string, task Task) (map[string]interface{}, error) {
	agent, err := r.Get(agentID)
	if err != nil {
		return nil, err
	}
	return agent.Handle(ctx, task)
}
