package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dreamcatcher/application/ports"
	"dreamcatcher/application/services"
	"dreamcatcher/domain/core/valueobjects"
	"dreamcatcher/pkg/common"
	pkgerrors "dreamcatcher/pkg/errors"
)

// IdeaHandler handles idea-related HTTP requests
type IdeaHandler struct {
	ideas        *services.IdeaService
	semantic     *services.SemanticService
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewIdeaHandler creates a new idea handler
func NewIdeaHandler(ideas *services.IdeaService, semantic *services.SemanticService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *IdeaHandler {
	return &IdeaHandler{ideas: ideas, semantic: semantic, errorHandler: errorHandler, logger: logger}
}

// UpdateIdeaRequest is the body of PATCH /api/ideas/{ideaID}
type UpdateIdeaRequest struct {
	Favorite *bool `json:"is_favorite"`
	Archived *bool `json:"is_archived"`
}

// ListIdeas handles GET /api/ideas
func (h *IdeaHandler) ListIdeas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ports.IdeaFilter{
		UserID:     userID(r),
		Category:   valueobjects.Category(strings.ToLower(q.Get("category"))),
		SourceType: valueobjects.SourceType(strings.ToLower(q.Get("source_type"))),
		Tag:        q.Get("tag"),
		Search:     q.Get("search"),
	}
	filter.Skip, filter.Limit = common.ClampPage(
		common.QueryInt(r, "skip", 0),
		common.QueryInt(r, "limit", services.DefaultIdeaLimit),
		services.DefaultIdeaLimit, services.MaxIdeaLimit,
	)
	if v, ok := common.QueryFloat(r, "min_urgency"); ok {
		filter.MinUrgency = &v
	}
	if archived, err := strconv.ParseBool(q.Get("include_archived")); err == nil {
		filter.IncludeArchived = archived
	}

	ideas, err := h.ideas.List(r.Context(), filter)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	common.RespondWithMeta(w, http.StatusOK, ideas, common.NewPagination(filter.Skip, filter.Limit, len(ideas)))
}

// GetIdea handles GET /api/ideas/{ideaID}
func (h *IdeaHandler) GetIdea(w http.ResponseWriter, r *http.Request) {
	detail, err := h.ideas.Get(r.Context(), userID(r), chi.URLParam(r, "ideaID"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, detail)
}

// UpdateIdea handles PATCH /api/ideas/{ideaID}
func (h *IdeaHandler) UpdateIdea(w http.ResponseWriter, r *http.Request) {
	var req UpdateIdeaRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	idea, err := h.ideas.Update(r.Context(), userID(r), chi.URLParam(r, "ideaID"), services.IdeaPatch{
		Favorite: req.Favorite,
		Archived: req.Archived,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, idea)
}

// DeleteIdea handles DELETE /api/ideas/{ideaID}
func (h *IdeaHandler) DeleteIdea(w http.ResponseWriter, r *http.Request) {
	ideaID := chi.URLParam(r, "ideaID")
	if err := h.ideas.Delete(r.Context(), userID(r), ideaID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, map[string]interface{}{"id": ideaID, "deleted": true})
}

// RelatedIdeas handles GET /api/ideas/{ideaID}/related
func (h *IdeaHandler) RelatedIdeas(w http.ResponseWriter, r *http.Request) {
	threshold, _ := common.QueryFloat(r, "threshold")
	hits, err := h.semantic.FindRelated(r.Context(), userID(r), chi.URLParam(r, "ideaID"),
		common.QueryInt(r, "limit", 0), threshold)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, hits)
}

// ListTags handles GET /api/tags
func (h *IdeaHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.ideas.Tags(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, tags)
}
