package handlers

import (
	"net/http"

	"coinvest/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	offset := (page - 1) * limit
	notifications, err := h.notifications.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load notifications")
		return
	}
	normalized := make([]map[string]any, 0, len(notifications))
	for _, n := range notifications {
		normalized = append(normalized, map[string]any{
			"id":         n.ID,
			"title":      n.Title,
			"message":    n.Message,
			"type":       n.Type,
			"is_read":    n.IsRead,
			"created_at": n.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, normalized)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	notificationID := chi.URLParam(r, "id")
	affected, err := h.notifications.MarkRead(r.Context(), userID, notificationID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update notification")
		return
	}
	if affected == 0 {
		respondError(w, http.StatusNotFound, "notification not found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
