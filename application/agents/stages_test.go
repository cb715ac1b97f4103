package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/domain/events"
	"dreamcatcher/infrastructure/embeddings"
	"dreamcatcher/infrastructure/llm"
	pkgerrors "dreamcatcher/pkg/errors"
)

func TestListener(t *testing.T) {
	ctx := context.Background()

	t.Run("Should send text ideas to the classifier", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "a tool to sort my photos", valueobjects.SourceText)
		l := NewListener(f.deps, f.store, f.scorer, f.next)

		out, err := l.Handle(ctx, Task{IdeaID: idea.ID, UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, ClassifierID, out["routed_to"])
		assert.Equal(t, []string{ClassifierID}, f.next.agents())

		stored, _ := f.store.FindIdea(ctx, idea.ID)
		assert.Equal(t, valueobjects.StatusProcessing, stored.Status)
	})

	t.Run("Should complete dreams without classification", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "I dreamt of a glowing symbol over the sea", valueobjects.SourceDream)
		l := NewListener(f.deps, f.store, f.scorer, f.next)

		_, err := l.Handle(ctx, Task{IdeaID: idea.ID, UserID: "u1", Payload: map[string]interface{}{"dream_type": "lucid"}})
		require.NoError(t, err)

		stored, _ := f.store.FindIdea(ctx, idea.ID)
		assert.Equal(t, valueobjects.StatusCompleted, stored.Status)
		assert.Equal(t, valueobjects.CategoryMetaphysical, stored.Category)
		assert.Equal(t, 30.0, stored.UrgencyScore)
		assert.True(t, stored.HasTag("dream"))
		assert.True(t, stored.HasTag("lucid"))
		assert.True(t, stored.HasTag("metaphysical"))
		assert.Equal(t, []string{SemanticID}, f.next.agents())
		assert.Contains(t, f.publisher.types(), events.TypeIdeaClassified)
	})

	t.Run("Should fail the idea when the classifier cannot be reached", func(t *testing.T) {
		f := newFixture()
		f.next.err = pkgerrors.NewUnavailable("agent pipeline")
		idea := f.capture(t, "u1", "something", valueobjects.SourceText)
		l := NewListener(f.deps, f.store, f.scorer, f.next)

		_, err := l.Handle(ctx, Task{IdeaID: idea.ID})
		require.Error(t, err)
		stored, _ := f.store.FindIdea(ctx, idea.ID)
		assert.Equal(t, valueobjects.StatusFailed, stored.Status)
	})
}

func TestClassifier(t *testing.T) {
	ctx := context.Background()

	t.Run("Should classify with rules when no model is available", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "urgent business idea for a startup, asap", valueobjects.SourceText)
		c := NewClassifier(f.deps, f.store, f.scorer, nil, nil, f.next)

		out, err := c.Handle(ctx, Task{IdeaID: idea.ID, UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, false, out["ai_assisted"])

		stored, _ := f.store.FindIdea(ctx, idea.ID)
		assert.Equal(t, valueobjects.CategoryBusiness, stored.Category)
		assert.Equal(t, valueobjects.StatusCompleted, stored.Status)
		assert.Greater(t, stored.UrgencyScore, 60.0)
		assert.Equal(t, []string{ExpanderID, SemanticID}, f.next.agents())
		assert.Contains(t, f.publisher.types(), events.TypeIdeaClassified)
	})

	t.Run("Should merge the model analysis", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "a story about music", valueobjects.SourceText)
		ai := llm.NewService(llm.NewMockProvider())
		c := NewClassifier(f.deps, f.store, f.scorer, ai, nil, f.next)

		out, err := c.Handle(ctx, Task{IdeaID: idea.ID})
		require.NoError(t, err)
		assert.Equal(t, true, out["ai_assisted"])

		stored, _ := f.store.FindIdea(ctx, idea.ID)
		assert.Equal(t, valueobjects.CategoryCreative, stored.Category)
		assert.True(t, stored.HasTag("ai-reviewed"))
	})

	t.Run("Should fall back to rules when the model fails", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "a habit tracker for my morning routine", valueobjects.SourceText)
		c := NewClassifier(f.deps, f.store, f.scorer, &stubAI{err: errors.New("down")}, nil, f.next)

		out, err := c.Handle(ctx, Task{IdeaID: idea.ID})
		require.NoError(t, err)
		assert.Equal(t, false, out["ai_assisted"])
	})

	t.Run("Should honour the auto-expand preference", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "urgent critical important fix", valueobjects.SourceText)
		never := func(ctx context.Context, userID string) bool { return false }
		c := NewClassifier(f.deps, f.store, f.scorer, nil, never, f.next)

		_, err := c.Handle(ctx, Task{IdeaID: idea.ID})
		require.NoError(t, err)
		assert.Equal(t, []string{SemanticID}, f.next.agents())
	})

	t.Run("Should require a model when forced", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "anything", valueobjects.SourceText)
		c := NewClassifier(f.deps, f.store, f.scorer, nil, nil, f.next)

		_, err := c.Handle(ctx, Task{IdeaID: idea.ID, Payload: map[string]interface{}{"force_ai": true}})
		assert.True(t, pkgerrors.IsUnavailable(err))
	})
}

func TestExpander(t *testing.T) {
	ctx := context.Background()

	t.Run("Should store general and specialized expansions", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "an app for gardeners", valueobjects.SourceText)
		e := NewExpander(f.deps, f.store, f.store, &stubAI{}, f.next)

		out, err := e.Handle(ctx, Task{IdeaID: idea.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, out["expansions_count"])

		stored, err := f.store.ListExpansions(ctx, idea.ID)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		types := []valueobjects.ExpansionType{stored[0].Type, stored[1].Type}
		assert.ElementsMatch(t, []valueobjects.ExpansionType{valueobjects.ExpansionGPT, valueobjects.ExpansionSpecialized}, types)

		next, ok := f.next.last(VisualizerID)
		require.True(t, ok)
		assert.Equal(t, "general", next.Payload["expanded_content"])
		assert.Contains(t, f.publisher.types(), events.TypeIdeaExpanded)
	})

	t.Run("Should use a template without a model", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "an app for gardeners", valueobjects.SourceText)
		e := NewExpander(f.deps, f.store, f.store, nil, f.next)

		_, err := e.Handle(ctx, Task{IdeaID: idea.ID})
		require.NoError(t, err)

		stored, _ := f.store.ListExpansions(ctx, idea.ID)
		require.Len(t, stored, 1)
		assert.Equal(t, valueobjects.ExpansionSpecialized, stored[0].Type)
		assert.Equal(t, "template", stored[0].Model)
		assert.Contains(t, stored[0].Content, "an app for gardeners")
	})

	t.Run("Should fail when the model fails", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "x", valueobjects.SourceText)
		e := NewExpander(f.deps, f.store, f.store, &stubAI{err: errors.New("down")}, f.next)

		_, err := e.Handle(ctx, Task{IdeaID: idea.ID})
		require.Error(t, err)
		assert.Empty(t, f.next.agents())
	})
}

func TestVisualizer(t *testing.T) {
	ctx := context.Background()

	t.Run("Should keep prompts when no renderer is available", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "a lighthouse made of books", valueobjects.SourceText)
		v := NewVisualizer(f.deps, f.store, f.store, nil, nil, f.next)

		out, err := v.Handle(ctx, Task{IdeaID: idea.ID})
		require.NoError(t, err)
		assert.Equal(t, 3, out["visualizations_count"])
		assert.Equal(t, false, out["rendered"])

		visuals, _ := f.store.ListVisuals(ctx, idea.ID)
		require.Len(t, visuals, 3)
		styles := make([]string, 0, 3)
		for _, vis := range visuals {
			assert.Equal(t, GeneratorPromptOnly, vis.Generator)
			assert.NotEmpty(t, vis.Prompt)
			styles = append(styles, vis.Style)
		}
		assert.ElementsMatch(t, []string{"creative", "personal", "abstract"}, styles)
		assert.Equal(t, []string{ProposerID}, f.next.agents())
	})

	t.Run("Should render through the image generator", func(t *testing.T) {
		f := newFixture()
		idea := f.capture(t, "u1", "a lighthouse made of books", valueobjects.SourceText)
		v := NewVisualizer(f.deps, f.store, f.store, &stubAI{}, &stubImages{available: true}, f.next)

		out, err := v.Handle(ctx, Task{IdeaID: idea.ID})
		require.NoError(t, err)
		assert.Equal(t, true, out["rendered"])

		visuals, _ := f.store.ListVisuals(ctx, idea.ID)
		for _, vis := range visuals {
			assert.Equal(t, GeneratorComfyUI, vis.Generator)
			assert.Equal(t, vis.Style+".png", vis.ImagePath)
			assert.Equal(t, "stub prompt "+vis.Style, vis.Prompt)
		}
		assert.Contains(t, f.publisher.types(), events.TypeVisualGenerated)
	})
}

func TestSemantic(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	idea := f.capture(t, "u1", "solar powered bike lights", valueobjects.SourceText)
	s := NewSemantic(f.deps, f.store, f.store, embeddings.NewHashEmbedder(384))

	out, err := s.Handle(ctx, Task{IdeaID: idea.ID})
	require.NoError(t, err)
	assert.Equal(t, 384, out["dimension"])

	vec, err := f.store.GetEmbedding(ctx, idea.ID)
	require.NoError(t, err)
	assert.Len(t, vec, 384)
}
