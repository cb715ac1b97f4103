package agents

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	domainservices "dreamcatcher/domain/services"
)

func (f *fixture) captureAged(t *testing.T, userID, content string, age time.Duration) *entities.Idea {
	t.Helper()
	idea := f.capture(t, userID, content, valueobjects.SourceText)
	idea.CreatedAt = idea.CreatedAt.Add(-age)
	require.NoError(t, f.store.SaveIdea(context.Background(), idea))
	return idea
}

func TestReviewer(t *testing.T) {
	ctx := context.Background()
	day := 24 * time.Hour

	t.Run("Should resurface the most dormant ideas per user", func(t *testing.T) {
		f := newFixture()
		oldest := f.captureAged(t, "u1", "oldest", 20*day)
		for i := 10; i < 14; i++ {
			f.captureAged(t, "u1", "old idea", time.Duration(i)*day)
		}
		f.capture(t, "u1", "fresh", valueobjects.SourceText)
		f.captureAged(t, "u2", "other user", 5*day)

		r := NewReviewer(f.deps, f.store, f.store, f.notifier)
		out, err := r.Handle(ctx, ReviewRequest("", "daily", domainservices.StrategyTimeBased))
		require.NoError(t, err)

		assert.Equal(t, 4, out["reviewed_count"], "three for u1 and one for u2")
		assert.NotEmpty(t, out["next_review"])

		var u1 []*entities.Notification
		for _, n := range f.notifier.all() {
			assert.Equal(t, "review", n.Kind)
			if n.UserID == "u1" {
				u1 = append(u1, n)
			}
		}
		require.Len(t, u1, 3)
		var ids []string
		for _, n := range u1 {
			ids = append(ids, n.Data["idea_id"].(string))
		}
		assert.Contains(t, ids, oldest.ID.String())
	})

	t.Run("Should limit the review to one user", func(t *testing.T) {
		f := newFixture()
		f.captureAged(t, "u1", "mine", 3*day)
		f.captureAged(t, "u2", "theirs", 3*day)

		r := NewReviewer(f.deps, f.store, f.store, f.notifier)
		out, err := r.Handle(ctx, ReviewRequest("u2", "weekly", domainservices.StrategySerendipity))
		require.NoError(t, err)
		assert.Equal(t, 1, out["reviewed_count"])

		notes := f.notifier.all()
		require.Len(t, notes, 1)
		assert.Equal(t, "u2", notes[0].UserID)
		score := notes[0].Data["review_priority"].(float64)
		assert.GreaterOrEqual(t, score, 40.0)
		assert.LessOrEqual(t, score, 105.0)
	})

	t.Run("Should scan only the requesting user's dormant ideas", func(t *testing.T) {
		f := newFixture()
		for i := 0; i < reviewScanLimit+5; i++ {
			f.captureAged(t, "busy", "backlog", 60*day)
		}
		for i := 0; i < 3; i++ {
			f.captureAged(t, "u1", "mine", 10*day)
		}

		r := NewReviewer(f.deps, f.store, f.store, f.notifier)
		out, err := r.Handle(ctx, ReviewRequest("u1", "weekly", domainservices.StrategyTimeBased))
		require.NoError(t, err)
		assert.Equal(t, 3, out["reviewed_count"])
		for _, n := range f.notifier.all() {
			assert.Equal(t, "u1", n.UserID)
		}
	})

	t.Run("Should serve concurrent serendipity reviews", func(t *testing.T) {
		f := newFixture()
		f.capture(t, "u1", "a quiet thought", valueobjects.SourceText)
		r := NewReviewer(f.deps, f.store, f.store, nil)

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					out, err := r.Handle(ctx, ReviewRequest("u1", "daily", domainservices.StrategySerendipity))
					assert.NoError(t, err)
					assert.Equal(t, 1, out["reviewed_count"])
				}
			}()
		}
		wg.Wait()
	})

	t.Run("Should fall back to daily time based reviews", func(t *testing.T) {
		f := newFixture()
		r := NewReviewer(f.deps, f.store, f.store, nil)

		out, err := r.Handle(ctx, ReviewRequest("", "yearly", "astrology"))
		require.NoError(t, err)
		assert.Equal(t, "daily", out["review_type"])
		assert.Equal(t, domainservices.StrategyTimeBased, out["strategy"])
		assert.Equal(t, 0, out["reviewed_count"])
	})

	t.Run("Should rank pending proposals by priority", func(t *testing.T) {
		f := newFixture()
		strong := f.capture(t, "u1", "strong", valueobjects.SourceText)
		weak := f.capture(t, "u1", "weak", valueobjects.SourceText)
		for _, c := range []struct {
			idea     *entities.Idea
			priority float64
		}{{strong, 90}, {weak, 70}} {
			p, err := entities.NewProposal(c.idea, entities.ProposalDraft{Title: "p", Viability: 75, Priority: c.priority})
			require.NoError(t, err)
			require.NoError(t, f.store.SaveProposal(ctx, p))
		}

		r := NewReviewer(f.deps, f.store, f.store, f.notifier)
		out, err := r.Handle(ctx, ReviewRequest("u1", "priority", domainservices.StrategyPriorityQueue))
		require.NoError(t, err)
		assert.Equal(t, 1, out["reviewed_count"])

		notes := f.notifier.all()
		require.Len(t, notes, 1)
		assert.Equal(t, strong.ID.String(), notes[0].Data["idea_id"])
		assert.Equal(t, 90.0, notes[0].Data["review_priority"])
	})
}
