package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dreamcatcher/application/services"
	pkgerrors "dreamcatcher/pkg/errors"
)

// SettingsHandler handles per-user application settings.
type SettingsHandler struct {
	settings     *services.SettingsService
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settings *services.SettingsService, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, errorHandler: errorHandler, logger: logger}
}

// SetSettingRequest is the body of PATCH /api/settings/{key}
type SetSettingRequest struct {
	Value interface{} `json:"value"`
}

// GetSettings handles GET /api/settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	values, err := h.settings.Get(r.Context(), userID(r))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, values)
}

// UpdateSettings handles PUT /api/settings
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]interface{}
	if err := decodeJSON(r, &values, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	merged, err := h.settings.Update(r.Context(), userID(r), values)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, merged)
}

// SetSetting handles PATCH /api/settings/{key}
func (h *SettingsHandler) SetSetting(w http.ResponseWriter, r *http.Request) {
	var req SetSettingRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if req.Value == nil {
		h.errorHandler.Handle(w, r, pkgerrors.NewValidation("value is required").WithCode(pkgerrors.CodeInvalidInput))
		return
	}
	merged, err := h.settings.Set(r.Context(), userID(r), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, merged)
}

// ResetSettings handles DELETE /api/settings
func (h *SettingsHandler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	values, err := h.settings.Reset(r.Context(), userID(r))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, values)
}
