package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
)

// Scores used when no model can assess viability.
const (
	fallbackViability = 63.0
	fallbackPriority  = 65.0
)

// Proposer assesses an idea's viability and turns it into a project proposal.
type Proposer struct {
	*BaseAgent
	ideas     ports.IdeaRepository
	derived   ports.DerivedRepository
	proposals ports.ProposalRepository
	ai        ports.IdeaIntelligence
	notifier  ports.Notifier
	next      ports.TaskSubmitter
}

// NewProposer creates the proposer agent. ai and notifier may be nil.
func NewProposer(deps Deps, ideas ports.IdeaRepository, derived ports.DerivedRepository, proposals ports.ProposalRepository, ai ports.IdeaIntelligence, notifier ports.Notifier, next ports.TaskSubmitter) *Proposer {
	p := &Proposer{ideas: ideas, derived: derived, proposals: proposals, ai: ai, notifier: notifier, next: next}
	p.BaseAgent = NewBaseAgent(Info{
		ID:          ProposerID,
		Name:        "Proposer",
		Description: "Evaluates viability and drafts project proposals.",
	}, deps, p.process)
	return p
}

func (p *Proposer) process(ctx context.Context, task Task) (map[string]interface{}, error) {
	idea, err := p.ideas.FindIdea(ctx, task.IdeaID)
	if err != nil {
		return nil, err
	}

	var expansions []string
	if expanded := payloadString(task.Payload, "expanded_content", ""); expanded != "" {
		expansions = append(expansions, expanded)
	} else if stored, err := p.derived.ListExpansions(ctx, idea.ID); err == nil {
		for _, e := range stored {
			expansions = append(expansions, e.Content)
		}
	}

	viability, generatedBy := p.assess(ctx, idea, expansions)
	proposal, err := entities.NewProposal(idea, entities.ProposalDraft{
		Title:              viability.Title,
		Description:        viability.Description,
		ProblemStatement:   viability.ProblemStatement,
		SolutionApproach:   viability.SolutionApproach,
		ImplementationPlan: viability.ImplementationPlan,
		Viability:          viability.OverallScore,
		Priority:           viability.PriorityScore,
		Analysis:           viability.Criteria,
		Tasks:              viability.Tasks,
		GeneratedBy:        generatedBy,
	})
	if err != nil {
		return nil, err
	}
	if err := p.proposals.SaveProposal(ctx, proposal); err != nil {
		return nil, err
	}

	idea.SetViability(proposal.ViabilityScore)
	if err := p.ideas.SaveIdea(ctx, idea); err != nil {
		return nil, err
	}

	publish(ctx, p.deps, proposal)
	p.deps.Metrics.RecordProposal(string(proposal.Status))
	p.notify(ctx, proposal)

	priorityReview := proposal.NeedsPriorityReview()
	if priorityReview {
		submit(p.next, p.logger, ReviewerID, Task{
			IdeaID: idea.ID,
			UserID: idea.UserID,
			Payload: map[string]interface{}{
				"review_type": "priority",
				"strategy":    "priority_queue",
				"proposal_id": proposal.ID,
			},
		})
	}

	return map[string]interface{}{
		"proposal_id":     proposal.ID,
		"viability_score": proposal.ViabilityScore,
		"priority_score":  proposal.PriorityScore,
		"status":          string(proposal.Status),
		"priority_review": priorityReview,
	}, nil
}

func (p *Proposer) assess(ctx context.Context, idea *entities.Idea, expansions []string) (*ports.Viability, string) {
	if p.ai != nil && p.ai.Available() {
		v, err := p.ai.AssessViability(ctx, idea.Content(), string(idea.Category), expansions)
		if err == nil {
			if v.Title == "" {
				v.Title = defaultTitle(idea)
			}
			return v, p.ai.Model()
		}
		p.logger.Warn("Viability assessment failed, using fallback scores", zap.Error(err))
	}
	return fallbackAssessment(idea), "fallback"
}

func fallbackAssessment(idea *entities.Idea) *ports.Viability {
	return &ports.Viability{
		Title:            defaultTitle(idea),
		Description:      idea.Content(),
		ProblemStatement: "To be refined after review.",
		Criteria: map[string]float64{
			"feasibility":           7,
			"market_demand":         6,
			"resource_requirements": 5,
			"timeline":              6,
			"uniqueness":            7,
			"scalability":           5,
			"sustainability":        6,
			"alignment":             8,
		},
		Tasks: []string{
			"Write down the core problem in one sentence",
			"Sketch the smallest useful version",
			"Ask two people for feedback",
		},
		OverallScore:  fallbackViability,
		PriorityScore: fallbackPriority,
	}
}

func defaultTitle(idea *entities.Idea) string {
	content := []rune(idea.Content())
	if len(content) > 100 {
		return "Proposal for: " + string(content[:100]) + "..."
	}
	return "Proposal for: " + string(content)
}

func (p *Proposer) notify(ctx context.Context, proposal *entities.Proposal) {
	if p.notifier == nil {
		return
	}
	level := entities.LevelSuccess
	if proposal.Status == valueobjects.ProposalLowViability {
		level = entities.LevelInfo
	}
	_, err := p.notifier.Notify(ctx, proposal.UserID, level,
		"New proposal ready",
		fmt.Sprintf("%s (viability %.0f%%)", proposal.Title, proposal.ViabilityScore),
		ports.NotifyOptions{
			Kind: "proposal",
			Data: map[string]interface{}{
				"proposal_id": proposal.ID,
				"idea_id":     proposal.IdeaID.String(),
			},
		},
	)
	if err != nil {
		p.logger.Warn("Failed to notify about proposal", zap.Error(err))
	}
}
