package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"dreamcatcher/application/services"
	pkgerrors "dreamcatcher/pkg/errors"
)

// AgentHandler exposes agent status, manual reviews and dashboard stats.
type AgentHandler struct {
	agents       *services.AgentService
	stats        *services.StatsService
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(agents *services.AgentService, stats *services.StatsService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{agents: agents, stats: stats, errorHandler: errorHandler, logger: logger}
}

// ReviewRequest is the body of POST /api/agents/review
type ReviewRequest struct {
	Type     string `json:"type,omitempty" validate:"omitempty,oneof=daily weekly monthly quarterly priority"`
	Strategy string `json:"strategy,omitempty" validate:"omitempty,oneof=time_based context_based pattern_based serendipity priority_queue"`
}

// Status handles GET /api/agents/status
func (h *AgentHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.agents.Status())
}

// TriggerReview handles POST /api/agents/review
func (h *AgentHandler) TriggerReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	report, err := h.agents.TriggerReview(r.Context(), userID(r), req.Type, req.Strategy)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, report)
}

// Stats handles GET /api/stats
func (h *AgentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Get(r.Context(), userID(r))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, stats)
}
