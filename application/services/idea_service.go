package services

import (
	"context"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	pkgerrors "dreamcatcher/pkg/errors"
)

// Idea listing limits.
const (
	DefaultIdeaLimit = 100
	MaxIdeaLimit     = 100
)

// IdeaPatch carries the user-editable idea flags. Nil fields are left alone.
type IdeaPatch struct {
	Favorite *bool `json:"is_favorite"`
	Archived *bool `json:"is_archived"`
}

// IdeaService serves reads and edits of captured ideas.
type IdeaService struct {
	ideas     ports.IdeaRepository
	derived   ports.DerivedRepository
	proposals ports.ProposalRepository
	logger    *zap.Logger
}

// NewIdeaService creates a new idea service
func NewIdeaService(
	ideas ports.IdeaRepository,
	derived ports.DerivedRepository,
	proposals ports.ProposalRepository,
	logger *zap.Logger,
) *IdeaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdeaService{
		ideas:     ideas,
		derived:   derived,
		proposals: proposals,
		logger:    logger,
	}
}

// List returns the user's ideas newest first. The limit is clamped to
// MaxIdeaLimit.
func (s *IdeaService) List(ctx context.Context, filter ports.IdeaFilter) ([]*entities.Idea, error) {
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultIdeaLimit
	}
	if filter.Limit > MaxIdeaLimit {
		filter.Limit = MaxIdeaLimit
	}
	if filter.Category != "" && !filter.Category.IsValid() {
		return nil, pkgerrors.NewValidation("unknown category: " + string(filter.Category))
	}
	if filter.SourceType != "" && !filter.SourceType.IsValid() {
		return nil, pkgerrors.NewValidation("unknown source type: " + string(filter.SourceType))
	}

	ideas, err := s.ideas.ListIdeas(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list ideas")
	}
	if ideas == nil {
		ideas = []*entities.Idea{}
	}
	return ideas, nil
}

// Get returns the idea with its expansions, visuals and proposals.
func (s *IdeaService) Get(ctx context.Context, userID, rawID string) (*entities.IdeaDetail, error) {
	idea, err := s.find(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}

	expansions, err := s.derived.ListExpansions(ctx, idea.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load expansions")
	}
	visuals, err := s.derived.ListVisuals(ctx, idea.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load visuals")
	}
	proposals, err := s.proposals.ListProposals(ctx, ports.ProposalFilter{IdeaID: idea.ID})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to load proposals")
	}

	detail := &entities.IdeaDetail{
		Idea:       idea,
		Expansions: expansions,
		Visuals:    visuals,
		Proposals:  proposals,
	}
	if detail.Expansions == nil {
		detail.Expansions = []entities.Expansion{}
	}
	if detail.Visuals == nil {
		detail.Visuals = []entities.Visual{}
	}
	if detail.Proposals == nil {
		detail.Proposals = []*entities.Proposal{}
	}
	return detail, nil
}

// Update applies patch to the idea and returns the stored result.
func (s *IdeaService) Update(ctx context.Context, userID, rawID string, patch IdeaPatch) (*entities.Idea, error) {
	idea, err := s.find(ctx, userID, rawID)
	if err != nil {
		return nil, err
	}
	if patch.Favorite == nil && patch.Archived == nil {
		return nil, pkgerrors.NewValidation("nothing to update")
	}

	if patch.Favorite != nil {
		idea.SetFavorite(*patch.Favorite)
	}
	if patch.Archived != nil {
		idea.SetArchived(*patch.Archived)
	}
	if err := s.ideas.SaveIdea(ctx, idea); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to save idea")
	}

	s.logger.Info("Idea updated",
		zap.String("idea_id", idea.ID.String()),
		zap.Bool("favorite", idea.Favorite),
		zap.Bool("archived", idea.Archived),
	)
	return idea, nil
}

// Delete removes the idea and everything derived from it.
func (s *IdeaService) Delete(ctx context.Context, userID, rawID string) error {
	idea, err := s.find(ctx, userID, rawID)
	if err != nil {
		return err
	}
	if err := s.ideas.DeleteIdea(ctx, idea.ID); err != nil {
		return pkgerrors.Wrap(err, "failed to delete idea")
	}
	s.logger.Info("Idea deleted", zap.String("idea_id", idea.ID.String()), zap.String("user_id", userID))
	return nil
}

// Tags returns every known tag with its usage count.
func (s *IdeaService) Tags(ctx context.Context) ([]entities.Tag, error) {
	tags, err := s.ideas.ListTags(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list tags")
	}
	return tags, nil
}

// find loads an idea owned by userID. Ideas of other users are reported as
// missing.
func (s *IdeaService) find(ctx context.Context, userID, rawID string) (*entities.Idea, error) {
	id, err := parseIdeaID(rawID)
	if err != nil {
		return nil, err
	}
	idea, err := s.ideas.FindIdea(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && idea.UserID != userID {
		return nil, pkgerrors.NewNotFound("idea").WithCode(pkgerrors.CodeIdeaNotFound)
	}
	return idea, nil
}

func parseIdeaID(raw string) (valueobjects.IdeaID, error) {
	id, err := valueobjects.ParseIdeaID(raw)
	if err != nil {
		return valueobjects.IdeaID{}, pkgerrors.NewValidation(err.Error()).
			WithCode(pkgerrors.CodeInvalidInput).
			WithDetail("idea_id", raw)
	}
	return id, nil
}
