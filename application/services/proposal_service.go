package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/infrastructure/observability"
	pkgerrors "dreamcatcher/pkg/errors"
)

// DefaultProposalLimit is the page size for proposal listings.
const DefaultProposalLimit = 50

// ProposalService lists proposals and records the user's decisions on them.
type ProposalService struct {
	proposals ports.ProposalRepository
	publisher ports.EventPublisher
	metrics   *observability.Collector
	logger    *zap.Logger
}

// NewProposalService creates a new proposal service
func NewProposalService(
	proposals ports.ProposalRepository,
	publisher ports.EventPublisher,
	metrics *observability.Collector,
	logger *zap.Logger,
) *ProposalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProposalService{
		proposals: proposals,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
	}
}

// List returns the user's proposals, newest first.
func (s *ProposalService) List(ctx context.Context, filter ports.ProposalFilter) ([]*entities.Proposal, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, pkgerrors.NewValidation("unknown proposal status: " + string(filter.Status))
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultProposalLimit
	}

	proposals, err := s.proposals.ListProposals(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "failed to list proposals")
	}
	if proposals == nil {
		proposals = []*entities.Proposal{}
	}
	return proposals, nil
}

// Get returns a single proposal owned by userID.
func (s *ProposalService) Get(ctx context.Context, userID, id string) (*entities.Proposal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.NewValidation("proposal ID cannot be empty")
	}
	p, err := s.proposals.FindProposal(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && p.UserID != userID {
		return nil, pkgerrors.NewNotFound("proposal").WithCode(pkgerrors.CodeProposalNotFound)
	}
	return p, nil
}

// Approve accepts the proposal.
func (s *ProposalService) Approve(ctx context.Context, userID, id, notes string) (*entities.Proposal, error) {
	return s.decide(ctx, userID, id, valueobjects.ProposalApproved, notes)
}

// Reject declines the proposal.
func (s *ProposalService) Reject(ctx context.Context, userID, id, notes string) (*entities.Proposal, error) {
	return s.decide(ctx, userID, id, valueobjects.ProposalRejected, notes)
}

func (s *ProposalService) decide(ctx context.Context, userID, id string, status valueobjects.ProposalStatus, notes string) (*entities.Proposal, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	notes = strings.TrimSpace(notes)
	if status == valueobjects.ProposalApproved {
		err = p.Approve(notes)
	} else {
		err = p.Reject(notes)
	}
	if err != nil {
		return nil, err
	}

	if err := s.proposals.SaveProposal(ctx, p); err != nil {
		return nil, pkgerrors.Wrap(err, "failed to save proposal")
	}
	if evts := p.GetUncommittedEvents(); len(evts) > 0 && s.publisher != nil {
		if err := s.publisher.Publish(ctx, evts...); err != nil {
			s.logger.Warn("Failed to publish proposal decision", zap.String("proposal_id", p.ID), zap.Error(err))
		}
	}
	p.MarkEventsAsCommitted()
	s.metrics.RecordProposal(string(p.Status))

	s.logger.Info("Proposal decided",
		zap.String("proposal_id", p.ID),
		zap.String("idea_id", p.IdeaID.String()),
		zap.String("status", string(p.Status)),
	)
	return p, nil
}
