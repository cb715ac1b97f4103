package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"dreamcatcher/application/services"
	"dreamcatcher/pkg/common"
	pkgerrors "dreamcatcher/pkg/errors"
)

// SearchHandler serves semantic search.
type SearchHandler struct {
	semantic     *services.SemanticService
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(semantic *services.SemanticService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{semantic: semantic, errorHandler: errorHandler, logger: logger}
}

// SimilarityRequest is the body of POST /api/search/similarity
type SimilarityRequest struct {
	TextA string `json:"text_a" validate:"required"`
	TextB string `json:"text_b" validate:"required"`
}

// Search handles GET /api/search?q=&limit=&threshold=
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	threshold, _ := common.QueryFloat(r, "threshold")

	hits, err := h.semantic.Search(r.Context(), userID(r), query, common.QueryInt(r, "limit", 0), threshold)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, map[string]interface{}{
		"query":   query,
		"results": hits,
		"count":   len(hits),
	})
}

// Stats handles GET /api/search/stats
func (h *SearchHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.semantic.Stats(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, stats)
}

// Similarity handles POST /api/search/similarity
func (h *SearchHandler) Similarity(w http.ResponseWriter, r *http.Request) {
	var req SimilarityRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	score, err := h.semantic.Similarity(r.Context(), req.TextA, req.TextB)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, map[string]float64{"similarity": score})
}
