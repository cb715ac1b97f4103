package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/infrastructure/persistence/memory"
	pkgerrors "dreamcatcher/pkg/errors"
)

func TestIdeaService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewIdeaService(store, store, store, zap.NewNop())

	mine := captureIdea(t, store, "u1", "a habit tracker")
	captureIdea(t, store, "u1", "a music sequencer")
	theirs := captureIdea(t, store, "u2", "someone else's idea")

	require.NoError(t, store.SaveExpansion(ctx, entities.NewExpansion(mine.ID, valueobjects.ExpansionSpecialized, "more detail", "template")))
	proposal, err := entities.NewProposal(mine, entities.ProposalDraft{Title: "Build it", Viability: 75})
	require.NoError(t, err)
	require.NoError(t, store.SaveProposal(ctx, proposal))

	t.Run("Should list only the user's ideas", func(t *testing.T) {
		ideas, err := svc.List(ctx, ports.IdeaFilter{UserID: "u1"})
		require.NoError(t, err)
		assert.Len(t, ideas, 2)
	})

	t.Run("Should clamp the page size", func(t *testing.T) {
		ideas, err := svc.List(ctx, ports.IdeaFilter{UserID: "u1", Limit: 1000, Skip: -3})
		require.NoError(t, err)
		assert.Len(t, ideas, 2)
	})

	t.Run("Should reject unknown filters", func(t *testing.T) {
		_, err := svc.List(ctx, ports.IdeaFilter{UserID: "u1", Category: "gadgets"})
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("Should return an empty list rather than nil", func(t *testing.T) {
		ideas, err := svc.List(ctx, ports.IdeaFilter{UserID: "nobody"})
		require.NoError(t, err)
		assert.NotNil(t, ideas)
		assert.Empty(t, ideas)
	})

	t.Run("Should load the idea with derived records", func(t *testing.T) {
		detail, err := svc.Get(ctx, "u1", mine.ID.String())
		require.NoError(t, err)
		assert.Equal(t, mine.ID, detail.ID)
		assert.Len(t, detail.Expansions, 1)
		assert.Empty(t, detail.Visuals)
		require.Len(t, detail.Proposals, 1)
		assert.Equal(t, "Build it", detail.Proposals[0].Title)
	})

	t.Run("Should hide other users' ideas", func(t *testing.T) {
		_, err := svc.Get(ctx, "u1", theirs.ID.String())
		assert.True(t, pkgerrors.IsNotFound(err))
	})

	t.Run("Should reject malformed IDs", func(t *testing.T) {
		_, err := svc.Get(ctx, "u1", "not-a-uuid")
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("Should apply a patch", func(t *testing.T) {
		yes := true
		idea, err := svc.Update(ctx, "u1", mine.ID.String(), IdeaPatch{Favorite: &yes, Archived: &yes})
		require.NoError(t, err)
		assert.True(t, idea.Favorite)
		assert.True(t, idea.Archived)

		ideas, err := svc.List(ctx, ports.IdeaFilter{UserID: "u1"})
		require.NoError(t, err)
		assert.Len(t, ideas, 1, "archived ideas are hidden by default")

		_, err = svc.Update(ctx, "u1", mine.ID.String(), IdeaPatch{})
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("Should delete the idea", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, "u1", mine.ID.String()))
		_, err := svc.Get(ctx, "u1", mine.ID.String())
		assert.True(t, pkgerrors.IsNotFound(err))
		assert.True(t, pkgerrors.IsNotFound(svc.Delete(ctx, "u2", mine.ID.String())))
	})
}
