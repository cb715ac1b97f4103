package services

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
)

func ideaAt(content string, category valueobjects.Category, created time.Time) *entities.Idea {
	return &entities.Idea{
		ID:         valueobjects.NewIdeaID(),
		UserID:     "u1",
		ContentRaw: content,
		Category:   category,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestReviewPlanner_ByDormancy(t *testing.T) {
	now := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	planner := NewReviewPlanner(func() time.Time { return now }, nil)

	cands := planner.ByDormancy([]*entities.Idea{
		ideaAt("recent", valueobjects.CategoryUtility, now.AddDate(0, 0, -3)),
		ideaAt("ancient", valueobjects.CategoryUtility, now.AddDate(0, 0, -80)),
	})

	require.Len(t, cands, 2)
	assert.Equal(t, 6.0, cands[0].Score)
	assert.Equal(t, 100.0, cands[1].Score)
	assert.Equal(t, "Dormant for 80 days", cands[1].Reason)

	top := Top(cands, 1)
	require.Len(t, top, 1)
	assert.Equal(t, "ancient", top[0].Idea.ContentRaw)
}

func TestContextScore(t *testing.T) {
	saturdayEvening := time.Date(2024, 4, 6, 20, 0, 0, 0, time.UTC)

	personal := ideaAt("call family", valueobjects.CategoryPersonal, saturdayEvening)
	assert.Equal(t, 65.0, ContextScore(personal, saturdayEvening))

	spring := ideaAt("a new garden layout", valueobjects.CategoryCreative, saturdayEvening)
	assert.Equal(t, 70.0, ContextScore(spring, saturdayEvening))
}

func TestReviewPlanner_ByPattern(t *testing.T) {
	now := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	planner := NewReviewPlanner(func() time.Time { return now }, nil)

	successful := []*entities.Idea{
		ideaAt("garden robot prototype", valueobjects.CategoryUtility, now.Add(-time.Hour)),
		ideaAt("robot lawn mower", valueobjects.CategoryUtility, now.Add(-2*time.Hour)),
	}
	patterns := BuildPatterns(successful)
	assert.Contains(t, patterns.Themes, "robot")
	assert.NotContains(t, patterns.Themes, "lawn")

	cands := planner.ByPattern([]*entities.Idea{
		ideaAt("robot garden prototype", valueobjects.CategoryUtility, now),
		ideaAt("poem about rain", valueobjects.CategoryCreative, now),
	}, patterns)

	require.Len(t, cands, 1)
	assert.Equal(t, "robot garden prototype", cands[0].Idea.ContentRaw)
	assert.Equal(t, 73.0, cands[0].Score)
}

func TestReviewPlanner_BySerendipity(t *testing.T) {
	planner := NewReviewPlanner(time.Now, rand.New(rand.NewSource(7)))

	idea := ideaAt("strange signal", valueobjects.CategoryMetaphysical, time.Now())
	idea.NoveltyScore = 90

	for i := 0; i < 50; i++ {
		c := planner.BySerendipity([]*entities.Idea{idea})[0]
		assert.GreaterOrEqual(t, c.Score, 55.0)
		assert.LessOrEqual(t, c.Score, 105.0)
	}
}

func TestReviewPlanner_BySerendipityConcurrent(t *testing.T) {
	planner := NewReviewPlanner(time.Now, rand.New(rand.NewSource(11)))
	ideas := []*entities.Idea{
		ideaAt("first", valueobjects.CategoryCreative, time.Now()),
		ideaAt("second", valueobjects.CategoryUtility, time.Now()),
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				for _, c := range planner.BySerendipity(ideas) {
					assert.GreaterOrEqual(t, c.Score, 40.0)
					assert.LessOrEqual(t, c.Score, 90.0)
				}
			}
		}()
	}
	wg.Wait()
}

func TestReviewPlanner_ByPriority(t *testing.T) {
	planner := NewReviewPlanner(nil, nil)
	idea := ideaAt("drone delivery", valueobjects.CategoryBusiness, time.Now())
	other := ideaAt("unrelated", valueobjects.CategoryBusiness, time.Now())

	prop, err := entities.NewProposal(idea, entities.ProposalDraft{Title: "Drones", Viability: 90, Priority: 88})
	require.NoError(t, err)

	cands := planner.ByPriority([]*entities.Idea{idea, other}, []*entities.Proposal{prop})
	require.Len(t, cands, 1)
	assert.Equal(t, 88.0, cands[0].Score)
}

func TestNextReview(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, from.AddDate(0, 0, 7), NextReview("weekly", from))
	assert.Equal(t, from.AddDate(0, 0, 1), NextReview("priority", from))
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.5, Similarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, 0.0, Similarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Similarity([]float32{1}, []float32{1, 2}))
	assert.Equal(t, 0.0, Similarity([]float32{0, 0}, []float32{1, 2}))
}
