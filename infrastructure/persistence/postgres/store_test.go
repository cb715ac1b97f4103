package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	pkgerrors "dreamcatcher/pkg/errors"
)

func TestBuildIdeaQuery(t *testing.T) {
	t.Run("Should hide archived ideas by default", func(t *testing.T) {
		query, args := buildIdeaQuery(ports.IdeaFilter{})
		assert.Contains(t, query, "WHERE NOT i.is_archived")
		assert.Contains(t, query, "ORDER BY i.created_at DESC")
		assert.NotContains(t, query, "LIMIT")
		assert.Empty(t, args)
	})

	t.Run("Should number placeholders in order", func(t *testing.T) {
		min := 70.0
		query, args := buildIdeaQuery(ports.IdeaFilter{
			UserID:          "u1",
			IncludeArchived: true,
			Category:        valueobjects.CategoryBusiness,
			MinUrgency:      &min,
			Tag:             " App ",
			Search:          "kettle",
			Skip:            20,
			Limit:           10,
		})
		assert.NotContains(t, query, "NOT i.is_archived")
		assert.Contains(t, query, "i.user_id = $1")
		assert.Contains(t, query, "i.category = $2")
		assert.Contains(t, query, "i.urgency_score >= $3")
		assert.Contains(t, query, "t.tag_name = $4")
		assert.Contains(t, query, "i.content_raw ILIKE $5 OR i.content_transcribed ILIKE $5")
		assert.Contains(t, query, "LIMIT $6 OFFSET $7")
		assert.Equal(t, []any{"u1", "business", 70.0, "app", "%kettle%", 10, 20}, args)
	})
}

func TestSchemaFor(t *testing.T) {
	schema := schemaFor(1536)
	assert.Contains(t, schema, "vector(1536)")
	assert.NotContains(t, schema, "{{DIMENSION}}")
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError("op", "idea", nil))
	assert.True(t, pkgerrors.IsNotFound(mapError("op", "idea", pgx.ErrNoRows)))
	assert.True(t, pkgerrors.IsConflict(mapError("op", "tag", &pgconn.PgError{Code: "23505"})))
	assert.True(t, pkgerrors.IsType(mapError("op", "idea", fmt.Errorf("boom")), pkgerrors.ErrorTypeDatabase))
}

// TestStore_Integration runs against a real database when
// DREAMCATCHER_TEST_DATABASE_URL points at one with pgvector installed.
func TestStore_Integration(t *testing.T) {
	url := os.Getenv("DREAMCATCHER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DREAMCATCHER_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, url, 3))
	pool, err := Connect(ctx, PoolConfig{URL: url, MaxConns: 4}, zap.NewNop())
	require.NoError(t, err)
	defer pool.Close()
	s := NewStore(pool)

	idea, err := entities.NewIdea(entities.CaptureInput{
		UserID:     "it-user",
		Content:    "integration kettle",
		SourceType: valueobjects.SourceText,
		Urgency:    70,
		Tags:       []string{"tech"},
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveIdea(ctx, idea))
	defer s.DeleteIdea(ctx, idea.ID)

	t.Run("Should round-trip an idea with tags", func(t *testing.T) {
		got, err := s.FindIdea(ctx, idea.ID)
		require.NoError(t, err)
		assert.Equal(t, idea.ContentRaw, got.ContentRaw)
		assert.Equal(t, []string{"tech"}, got.Tags)
		assert.False(t, got.HasEmbedding)
	})

	t.Run("Should scope dormant ideas to their owner", func(t *testing.T) {
		later := time.Now().Add(time.Hour)
		mine, err := s.FindDormant(ctx, "it-user", later, 0)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, idea.ID, mine[0].ID)

		others, err := s.FindDormant(ctx, "it-other-user", later, 0)
		require.NoError(t, err)
		assert.Empty(t, others)
	})

	t.Run("Should search by embedding", func(t *testing.T) {
		idea.ApplyClassification(entities.Classification{Urgency: 70})
		require.NoError(t, s.SaveIdea(ctx, idea))
		require.NoError(t, s.SaveEmbedding(ctx, idea.ID, []float32{1, 0, 0}))

		hits, err := s.SearchSimilar(ctx, "it-user", []float32{1, 0, 0}, 5, 0.5, valueobjects.IdeaID{})
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)

		v, err := s.GetEmbedding(ctx, idea.ID)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, v)
	})

	t.Run("Should store proposals with tasks", func(t *testing.T) {
		p, err := entities.NewProposal(idea, entities.ProposalDraft{Title: "Ship it", Viability: 82, Tasks: []string{"a", "b"}})
		require.NoError(t, err)
		require.NoError(t, s.SaveProposal(ctx, p))

		got, err := s.FindProposal(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, got.Tasks, 2)
		assert.Equal(t, "a", got.Tasks[0].Title)
	})

	t.Run("Should map missing rows to not found", func(t *testing.T) {
		_, err := s.FindIdea(ctx, valueobjects.NewIdeaID())
		assert.True(t, pkgerrors.IsNotFound(err))
	})
}
