package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/application/services"
	"dreamcatcher/domain/core/entities"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/pkg/common"
	pkgerrors "dreamcatcher/pkg/errors"
)

const maxProposalLimit = 200

// ProposalHandler handles proposal review requests
type ProposalHandler struct {
	proposals    *services.ProposalService
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewProposalHandler creates a new proposal handler
func NewProposalHandler(proposals *services.ProposalService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{proposals: proposals, errorHandler: errorHandler, logger: logger}
}

// DecisionRequest is the optional body of the approve and reject endpoints.
type DecisionRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=2000"`
}

// ListProposals handles GET /api/proposals
func (h *ProposalHandler) ListProposals(w http.ResponseWriter, r *http.Request) {
	filter := ports.ProposalFilter{
		UserID: userID(r),
		Status: valueobjects.ProposalStatus(strings.ToLower(r.URL.Query().Get("status"))),
	}
	filter.Skip, filter.Limit = common.ClampPage(
		common.QueryInt(r, "skip", 0),
		common.QueryInt(r, "limit", services.DefaultProposalLimit),
		services.DefaultProposalLimit, maxProposalLimit,
	)

	proposals, err := h.proposals.List(r.Context(), filter)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondWithMeta(w, http.StatusOK, proposals, common.NewPagination(filter.Skip, filter.Limit, len(proposals)))
}

// GetProposal handles GET /api/proposals/{proposalID}
func (h *ProposalHandler) GetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := h.proposals.Get(r.Context(), userID(r), chi.URLParam(r, "proposalID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, p)
}

// ApproveProposal handles POST /api/proposals/{proposalID}/approve
func (h *ProposalHandler) ApproveProposal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.proposals.Approve)
}

// RejectProposal handles POST /api/proposals/{proposalID}/reject
func (h *ProposalHandler) RejectProposal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.proposals.Reject)
}

type decideFunc func(ctx context.Context, userID, id, notes string) (*entities.Proposal, error)

func (h *ProposalHandler) decide(w http.ResponseWriter, r *http.Request, apply decideFunc) {
	var req DecisionRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	p, err := apply(r.Context(), userID(r), chi.URLParam(r, "proposalID"), req.Notes)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, p)
}
