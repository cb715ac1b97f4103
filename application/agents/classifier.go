package agents

import (
	"context"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	domainservices "dreamcatcher/domain/services"
	pkgerrors "dreamcatcher/pkg/errors"
)

// ExpandPreference reports whether a user wants ideas expanded automatically.
type ExpandPreference func(ctx context.Context, userID string) bool

// Classifier scores an idea with the keyword rules and, when a model is
// reachable, merges in the model's analysis.
type Classifier struct {
	*BaseAgent
	ideas      ports.IdeaRepository
	scorer     *domainservices.SharedScorer
	ai         ports.IdeaIntelligence
	autoExpand ExpandPreference
	next       ports.TaskSubmitter
}

// NewClassifier creates the classifier agent. ai and autoExpand may be nil.
func NewClassifier(deps Deps, ideas ports.IdeaRepository, scorer *domainservices.SharedScorer, ai ports.IdeaIntelligence, autoExpand ExpandPreference, next ports.TaskSubmitter) *Classifier {
	c := &Classifier{ideas: ideas, scorer: scorer, ai: ai, autoExpand: autoExpand, next: next}
	c.BaseAgent = NewBaseAgent(Info{
		ID:          ClassifierID,
		Name:        "Classifier",
		Description: "Categorises ideas and scores their urgency and novelty.",
	}, deps, c.process)
	return c
}

func (c *Classifier) process(ctx context.Context, task Task) (map[string]interface{}, error) {
	idea, err := c.ideas.FindIdea(ctx, task.IdeaID)
	if err != nil {
		return nil, err
	}

	forceAI, _ := task.Payload["force_ai"].(bool)
	result, err := c.classify(ctx, idea.Content(), forceAI)
	if err != nil {
		return nil, err
	}

	idea.ApplyClassification(result)
	if err := c.ideas.SaveIdea(ctx, idea); err != nil {
		return nil, err
	}
	publish(ctx, c.deps, idea)

	expand := c.scorer.Get().ShouldExpand(result)
	if expand && c.autoExpand != nil && !c.autoExpand(ctx, idea.UserID) {
		expand = false
	}
	next := Task{IdeaID: idea.ID, UserID: idea.UserID}
	if expand {
		submit(c.next, c.logger, ExpanderID, next)
	}
	submit(c.next, c.logger, SemanticID, next)

	return map[string]interface{}{
		"category":      string(idea.Category),
		"urgency_score": idea.UrgencyScore,
		"novelty_score": idea.NoveltyScore,
		"tags":          idea.Tags,
		"ai_assisted":   result.AIAssisted,
		"expanded":      expand,
	}, nil
}

func (c *Classifier) classify(ctx context.Context, content string, forceAI bool) (entities.Classification, error) {
	scorer := c.scorer.Get()
	rule := scorer.Classify(content)

	if c.ai == nil || !c.ai.Available() {
		if forceAI {
			return entities.Classification{}, pkgerrors.NewUnavailable("llm")
		}
		return rule, nil
	}

	analysis, err := c.ai.ClassifyIdea(ctx, content)
	if err != nil {
		if forceAI {
			return entities.Classification{}, err
		}
		c.logger.Warn("Model classification failed, using rules", zap.Error(err))
		return rule, nil
	}
	if forceAI {
		analysis.AIAssisted = true
		return analysis, nil
	}
	return scorer.Merge(rule, analysis), nil
}
