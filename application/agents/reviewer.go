package agents

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
	domainservices "dreamcatcher/domain/services"
)

const (
	reviewScanLimit     = 500
	successfulViability = 70.0
	defaultReviewType   = "daily"
	defaultStrategy     = domainservices.StrategyTimeBased
)

// Reviewer resurfaces ideas worth another look and notifies their owners.
type Reviewer struct {
	*BaseAgent
	ideas     ports.IdeaRepository
	proposals ports.ProposalRepository
	notifier  ports.Notifier
	planner   *domainservices.ReviewPlanner
	now       func() time.Time
}

// NewReviewer creates the reviewer agent. notifier may be nil.
func NewReviewer(deps Deps, ideas ports.IdeaRepository, proposals ports.ProposalRepository, notifier ports.Notifier) *Reviewer {
	now := func() time.Time { return time.Now().UTC() }
	r := &Reviewer{
		ideas:     ideas,
		proposals: proposals,
		notifier:  notifier,
		planner:   domainservices.NewReviewPlanner(now, rand.New(rand.NewSource(time.Now().UnixNano()))),
		now:       now,
	}
	r.BaseAgent = NewBaseAgent(Info{
		ID:          ReviewerID,
		Name:        "Reviewer",
		Description: "Time to revisit a hidden gem from your archives.",
	}, deps, r.process)
	return r
}

// ReviewRequest builds the task that asks the reviewer for a review. An
// empty userID reviews every user's ideas.
func ReviewRequest(userID, reviewType, strategy string) Task {
	return Task{
		UserID: userID,
		Payload: map[string]interface{}{
			"review_type": reviewType,
			"strategy":    strategy,
		},
	}
}

func (r *Reviewer) process(ctx context.Context, task Task) (map[string]interface{}, error) {
	typeName := payloadString(task.Payload, "review_type", defaultReviewType)
	reviewType, ok := domainservices.ReviewTypes[typeName]
	if !ok {
		typeName = defaultReviewType
		reviewType = domainservices.ReviewTypes[defaultReviewType]
	}
	strategy := payloadString(task.Payload, "strategy", defaultStrategy)
	if !knownStrategy(strategy) {
		strategy = domainservices.StrategyTimeBased
	}

	candidates, err := r.candidates(ctx, task, reviewType, strategy)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string][]domainservices.Candidate)
	for _, c := range candidates {
		byUser[c.Idea.UserID] = append(byUser[c.Idea.UserID], c)
	}

	results := make([]map[string]interface{}, 0)
	for userID, list := range byUser {
		for _, c := range domainservices.Top(list, reviewType.MaxIdeas) {
			r.notify(ctx, userID, c, typeName, strategy)
			results = append(results, map[string]interface{}{
				"idea_id":         c.Idea.ID.String(),
				"user_id":         userID,
				"review_priority": c.Score,
				"reason":          c.Reason,
				"preview":         events.Preview(c.Idea.Content()),
			})
		}
	}

	r.logger.Info("Review completed",
		zap.String("review_type", typeName),
		zap.String("strategy", strategy),
		zap.Int("candidates", len(candidates)),
		zap.Int("reviewed", len(results)),
	)

	return map[string]interface{}{
		"review_type":    typeName,
		"strategy":       strategy,
		"reviewed_count": len(results),
		"results":        results,
		"next_review":    domainservices.NextReview(typeName, r.now()).Format(time.RFC3339),
	}, nil
}

func (r *Reviewer) candidates(ctx context.Context, task Task, reviewType domainservices.ReviewType, strategy string) ([]domainservices.Candidate, error) {
	switch strategy {
	case domainservices.StrategyPriorityQueue:
		proposals, err := r.proposals.ListProposals(ctx, ports.ProposalFilter{
			UserID: task.UserID,
			IdeaID: task.IdeaID,
			Status: valueobjects.ProposalPending,
			Limit:  reviewScanLimit,
		})
		if err != nil {
			return nil, err
		}
		ideas := make([]*entities.Idea, 0, len(proposals))
		seen := make(map[string]bool)
		for _, p := range proposals {
			key := p.IdeaID.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			idea, err := r.ideas.FindIdea(ctx, p.IdeaID)
			if err != nil {
				continue
			}
			if !idea.Archived {
				ideas = append(ideas, idea)
			}
		}
		return r.planner.ByPriority(ideas, proposals), nil

	case domainservices.StrategyTimeBased:
		cutoff := r.now().AddDate(0, 0, -reviewType.AgeDays)
		ideas, err := r.ideas.FindDormant(ctx, task.UserID, cutoff, reviewScanLimit)
		if err != nil {
			return nil, err
		}
		return r.planner.ByDormancy(ideas), nil
	}

	ideas, err := r.ideas.ListIdeas(ctx, ports.IdeaFilter{UserID: task.UserID, Limit: reviewScanLimit})
	if err != nil {
		return nil, err
	}
	switch strategy {
	case domainservices.StrategyContextBased:
		return r.planner.ByContext(ideas), nil
	case domainservices.StrategyPatternBased:
		var successful []*entities.Idea
		for _, idea := range ideas {
			if idea.ViabilityScore >= successfulViability {
				successful = append(successful, idea)
			}
		}
		return r.planner.ByPattern(ideas, domainservices.BuildPatterns(successful)), nil
	default:
		return r.planner.BySerendipity(ideas), nil
	}
}

func (r *Reviewer) notify(ctx context.Context, userID string, c domainservices.Candidate, reviewType, strategy string) {
	if r.notifier == nil {
		return
	}
	keep := time.Duration(0)
	_, err := r.notifier.Notify(ctx, userID, entities.LevelInfo,
		"Time to revisit an idea",
		fmt.Sprintf("%s: %s", c.Reason, events.Preview(c.Idea.Content())),
		ports.NotifyOptions{
			Kind:        "review",
			AutoDismiss: &keep,
			Data: map[string]interface{}{
				"idea_id":         c.Idea.ID.String(),
				"review_type":     reviewType,
				"strategy":        strategy,
				"review_priority": c.Score,
			},
		},
	)
	if err != nil {
		r.logger.Warn("Failed to send review notification", zap.String("user_id", userID), zap.Error(err))
	}
}

func knownStrategy(s string) bool {
	for _, known := range domainservices.Strategies {
		if known == s {
			return true
		}
	}
	return false
}
