package services

import (
	"context"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	pkgerrors "dreamcatcher/pkg/errors"
)

const pendingScanLimit = 10000

// Stats is the dashboard summary for one user.
type Stats struct {
	ports.IdeaStats
	PendingProposals int                   `json:"pending_proposals"`
	Agents           []entities.AgentStats `json:"agents"`
}

// StatsService builds the dashboard summary.
type StatsService struct {
	ideas     ports.IdeaRepository
	proposals ports.ProposalRepository
	agents    AgentStatusSource
}

// NewStatsService creates the service. agents may be nil.
func NewStatsService(ideas ports.IdeaRepository, proposals ports.ProposalRepository, agents AgentStatusSource) *StatsService {
	return &StatsService{ideas: ideas, proposals: proposals, agents: agents}
}

// Get returns the summary for userID.
func (s *StatsService) Get(ctx context.Context, userID string) (*Stats, error) {
	ideaStats, err := s.ideas.IdeaStats(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to compute idea stats")
	}
	pending, err := s.proposals.ListProposals(ctx, ports.ProposalFilter{
		UserID: userID,
		Status: valueobjects.ProposalPending,
		Limit:  pendingScanLimit,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to count pending proposals")
	}

	stats := &Stats{
		IdeaStats:        ideaStats,
		PendingProposals: len(pending),
		Agents:           []entities.AgentStats{},
	}
	if s.agents != nil {
		stats.Agents = s.agents.Status()
	}
	return stats, nil
}
