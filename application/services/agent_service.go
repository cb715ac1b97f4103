package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"dreamcatcher/application/agents"
	"dreamcatcher/domain/core/entities"
	domainservices "dreamcatcher/domain/services"
	pkgerrors "dreamcatcher/pkg/errors"
)

// AgentStatusSource reports per-agent stats.
type AgentStatusSource interface {
	Status() []entities.AgentStats
}

// AgentService exposes agent status and on-demand reviews.
type AgentService struct {
	registry *agents.Registry
	status   AgentStatusSource
	logger   *zap.Logger
}

// NewAgentService creates the service. status defaults to the registry;
// pass the pipeline to include queue depths.
func NewAgentService(registry *agents.Registry, status AgentStatusSource, logger *zap.Logger) *AgentService {
	if status == nil {
		status = registry
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentService{registry: registry, status: status, logger: logger}
}

// Status returns every agent's stats sorted by ID.
func (s *AgentService) Status() []entities.AgentStats {
	return s.status.Status()
}

// TriggerReview runs the reviewer immediately and returns its report. Empty
// type and strategy take the reviewer defaults.
func (s *AgentService) TriggerReview(ctx context.Context, userID, reviewType, strategy string) (map[string]interface{}, error) {
	reviewType = strings.ToLower(strings.TrimSpace(reviewType))
	if reviewType == "" {
		reviewType = "daily"
	}
	if _, ok := domainservices.ReviewTypes[reviewType]; !ok {
		return nil, pkgerrors.NewValidation("unknown review type: " + reviewType).
			WithCode(pkgerrors.CodeInvalidInput).
			WithDetail("review_type", reviewType)
	}

	strategy = strings.ToLower(strings.TrimSpace(strategy))
	if strategy == "" {
		strategy = domainservices.StrategyTimeBased
	}
	if !isStrategy(strategy) {
		return nil, pkgerrors.NewValidation("unknown review strategy: " + strategy).
			WithCode(pkgerrors.CodeInvalidInput).
			WithDetail("supported", domainservices.Strategies)
	}

	s.logger.Info("Manual review triggered",
		zap.String("user_id", userID),
		zap.String("review_type", reviewType),
		zap.String("strategy", strategy),
	)
	return s.registry.Dispatch(ctx, agents.ReviewerID, agents.ReviewRequest(userID, reviewType, strategy))
}

func isStrategy(name string) bool {
	for _, s := range domainservices.Strategies {
		if s == name {
			return true
		}
	}
	return false
}
