package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamcatcher/domain/core/entities"
	"dreamcatcher/infrastructure/embeddings"
	"dreamcatcher/infrastructure/persistence/memory"
	pkgerrors "dreamcatcher/pkg/errors"
)

func completedIdea(t *testing.T, store *memory.Store, userID, content string) *entities.Idea {
	t.Helper()
	idea := captureIdea(t, store, userID, content)
	idea.ApplyClassification(entities.Classification{Category: "utility", Urgency: 50, Novelty: 50})
	idea.MarkEventsAsCommitted()
	require.NoError(t, store.SaveIdea(context.Background(), idea))
	return idea
}

type failingEmbedder struct{ *embeddings.HashEmbedder }

func (failingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("quota exceeded")
}

func TestSemanticService_SearchAndRelated(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewSemanticService(store, store, embeddings.NewHashEmbedder(384), zap.NewNop())

	garden := completedIdea(t, store, "u1", "automatic garden watering system")
	completedIdea(t, store, "u1", "garden watering schedule app")
	completedIdea(t, store, "u1", "jazz piano improvisation lessons")
	completedIdea(t, store, "u2", "garden watering robot")

	res, err := svc.Backfill(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Processed)
	assert.Zero(t, res.Remaining)

	t.Run("Should find similar ideas of the same user", func(t *testing.T) {
		hits, err := svc.Search(ctx, "u1", "garden watering", 0, 0)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		for _, h := range hits {
			assert.Equal(t, "u1", h.Idea.UserID)
			assert.GreaterOrEqual(t, h.Similarity, 0.5)
		}
		assert.Contains(t, hits[0].Idea.Content(), "garden")
	})

	t.Run("Should validate query and threshold", func(t *testing.T) {
		_, err := svc.Search(ctx, "u1", "  ", 0, 0)
		assert.True(t, pkgerrors.IsValidation(err))
		_, err = svc.Search(ctx, "u1", "garden", 0, 1.5)
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("Should exclude the idea itself from related results", func(t *testing.T) {
		hits, err := svc.FindRelated(ctx, "u1", garden.ID.String(), 0, 0)
		require.NoError(t, err)
		for _, h := range hits {
			assert.NotEqual(t, garden.ID, h.Idea.ID)
		}
	})

	t.Run("Should embed an idea on demand", func(t *testing.T) {
		fresh := captureIdea(t, store, "u1", "garden watering sensor")
		_, err := svc.FindRelated(ctx, "u1", fresh.ID.String(), 0, 0)
		require.NoError(t, err)
		_, err = store.GetEmbedding(ctx, fresh.ID)
		assert.NoError(t, err)
	})

	t.Run("Should report coverage", func(t *testing.T) {
		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, stats.TotalIdeas)
		assert.Equal(t, 5, stats.Embedded)
		assert.Zero(t, stats.Missing)
		assert.Equal(t, 384, stats.Dimension)
		assert.Equal(t, "hash", stats.Model)
		assert.InDelta(t, 100.0, stats.CoveragePct, 0.01)
	})

	t.Run("Should score identical texts as identical", func(t *testing.T) {
		sim, err := svc.Similarity(ctx, "garden watering", "garden watering")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, sim, 0.0001)
	})
}

func TestSemanticService_Defaults(t *testing.T) {
	svc := NewSemanticService(nil, nil, embeddings.NewHashEmbedder(8), zap.NewNop())
	svc.SetDefaults(SearchDefaults{Limit: 20, RelatedThreshold: 0.8})

	d := svc.Defaults()
	assert.Equal(t, 20, d.Limit)
	assert.Equal(t, 0.5, d.Threshold)
	assert.Equal(t, 5, d.RelatedLimit)
	assert.Equal(t, 0.8, d.RelatedThreshold)
}

func TestSemanticService_BackfillAndRegenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("Should count failed batches without aborting", func(t *testing.T) {
		store := memory.NewStore()
		completedIdea(t, store, "u1", "one")
		completedIdea(t, store, "u1", "two")
		svc := NewSemanticService(store, store, failingEmbedder{embeddings.NewHashEmbedder(8)}, zap.NewNop())

		res, err := svc.Backfill(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, res.Processed)
		assert.Equal(t, 2, res.Failed)
	})

	t.Run("Should rebuild every embedding", func(t *testing.T) {
		store := memory.NewStore()
		for _, c := range []string{"a", "b", "c", "d", "e"} {
			completedIdea(t, store, "u1", "idea "+c)
		}
		svc := NewSemanticService(store, store, embeddings.NewHashEmbedder(8), zap.NewNop())
		_, err := svc.Backfill(ctx, 2)
		require.NoError(t, err)

		res, err := svc.Regenerate(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, res.Processed)
		assert.Zero(t, res.Remaining)
	})
}
