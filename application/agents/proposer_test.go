package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
)

func viability(score float64) *ports.Viability {
	return &ports.Viability{
		Title:         "Garden robot",
		Description:   "Robot that weeds",
		Tasks:         []string{"Research", "Prototype"},
		Criteria:      map[string]float64{"feasibility": 8},
		OverallScore:  score,
		PriorityScore: score - 5,
	}
}

func TestProposer(t *testing.T) {
	ctx := context.Background()

	t.Run("Should use fallback scores without a model", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "a robot that weeds the garden", valueobjects.SourceText)
		p := NewProposer(f.deps, f.store, f.store, f.store, nil, f.notifier, f.next)

		out, err := p.Handle(ctx, Task{IdeaID: idea.ID, UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, 63.0, out["viability_score"])
		assert.Equal(t, 65.0, out["priority_score"])
		assert.Equal(t, string(valueobjects.ProposalPending), out["status"])
		assert.Equal(t, false, out["priority_review"])

		proposals, err := f.store.ListProposals(ctx, ports.ProposalFilter{IdeaID: idea.ID})
		require.NoError(t, err)
		require.Len(t, proposals, 1)
		assert.Equal(t, "fallback", proposals[0].GeneratedBy)
		assert.Len(t, proposals[0].Tasks, 3)

		stored, _ := f.store.FindIdea(ctx, idea.ID)
		assert.Equal(t, 63.0, stored.ViabilityScore)

		notes := f.notifier.all()
		require.Len(t, notes, 1)
		assert.Equal(t, entities.LevelSuccess, notes[0].Level)
		assert.Equal(t, "proposal", notes[0].Kind)
		assert.Contains(t, f.publisher.types(), events.TypeProposalGenerated)
		assert.Empty(t, f.next.agents())
	})

	t.Run("Should mark weak ideas as low viability", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "perpetual motion", valueobjects.SourceText)
		p := NewProposer(f.deps, f.store, f.store, f.store, &stubAI{viability: viability(40)}, f.notifier, f.next)

		out, err := p.Handle(ctx, Task{IdeaID: idea.ID})
		require.NoError(t, err)
		assert.Equal(t, string(valueobjects.ProposalLowViability), out["status"])
		assert.Equal(t, entities.LevelInfo, f.notifier.all()[0].Level)
	})

	t.Run("Should request a priority review for strong ideas", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "a robot that weeds the garden", valueobjects.SourceText)
		p := NewProposer(f.deps, f.store, f.store, f.store, &stubAI{viability: viability(85)}, nil, f.next)

		out, err := p.Handle(ctx, Task{IdeaID: idea.ID, UserID: "u1", Payload: map[string]interface{}{"expanded_content": "more"}})
		require.NoError(t, err)
		assert.Equal(t, true, out["priority_review"])

		review, ok := f.next.last(ReviewerID)
		require.True(t, ok)
		assert.Equal(t, "priority", review.Payload["review_type"])
		assert.Equal(t, "priority_queue", review.Payload["strategy"])
		assert.Equal(t, out["proposal_id"], review.Payload["proposal_id"])
		assert.True(t, review.IdeaID.Equals(idea.ID))
	})
}
