package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"dreamcatcher/application/services"
	pkgerrors "dreamcatcher/pkg/errors"
)

// NotificationHandler serves the user's notification list.
type NotificationHandler struct {
	dispatcher   *services.Dispatcher
	errorHandler *pkgerrors.ErrorHandler
	logger       *zap.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(dispatcher *services.Dispatcher, errorHandler *pkgerrors.ErrorHandler, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher, errorHandler: errorHandler, logger: logger}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread_only"))
	user := userID(r)
	respondOK(w, map[string]interface{}{
		"notifications": h.dispatcher.List(user, unreadOnly),
		"unread_count":  h.dispatcher.UnreadCount(user),
	})
}

// MarkRead handles POST /api/notifications/{notificationID}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationID")
	if err := h.dispatcher.MarkRead(userID(r), id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, map[string]interface{}{"id": id, "read": true})
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]int{"updated": h.dispatcher.MarkAllRead(userID(r))})
}

// Dismiss handles DELETE /api/notifications/{notificationID}
func (h *NotificationHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "notificationID")
	if err := h.dispatcher.Dismiss(r.Context(), userID(r), id); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	respondOK(w, map[string]interface{}{"id": id, "dismissed": true})
}

// Clear handles DELETE /api/notifications
func (h *NotificationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]int{"cleared": h.dispatcher.Clear(r.Context(), userID(r))})
}
