package agents

import (
	"context"
	"strings"

	"dreamcatcher/application/ports"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Semantic embeds ideas so they can be found by meaning.
type Semantic struct {
	*BaseAgent
	ideas    ports.IdeaRepository
	vectors  ports.EmbeddingRepository
	embedder ports.Embedder
}

// NewSemantic creates the semantic agent.
func NewSemantic(deps Deps, ideas ports.IdeaRepository, vectors ports.EmbeddingRepository, embedder ports.Embedder) *Semantic {
	s := &Semantic{ideas: ideas, vectors: vectors, embedder: embedder}
	s.BaseAgent = NewBaseAgent(Info{
		ID:          SemanticID,
		Name:        "Semantic",
		Description: "Generates embeddings for similarity search.",
	}, deps, s.process)
	return s
}

func (s *Semantic) process(ctx context.Context, task Task) (map[string]interface{}, error) {
	idea, err := s.ideas.FindIdea(ctx, task.IdeaID)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(idea.Content())
	if content == "" {
		return nil, pkgerrors.NewValidation("idea has no content to embed").WithCode(pkgerrors.CodeEmptyContent)
	}

	vector, err := s.embedder.EmbedQuery(ctx, content)
	if err != nil {
		return nil, err
	}
	if err := s.vectors.SaveEmbedding(ctx, idea.ID, vector); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"dimension": len(vector),
		"model":     s.embedder.Model(),
	}, nil
}
