package handlers

import (
	"net/http"

	"taskchat/internal/models"
	"taskchat/internal/services"
)

type NotificationHandlers struct {
	notifications *services.NotificationService
}

func NewNotificationHandlers(notifications *services.NotificationService) *NotificationHandlers {
	return &NotificationHandlers{notifications: notifications}
}

func (h *NotificationHandlers) Unread(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFrom(r.Context())

	notifications, err := h.notifications.Unread(r.Context(), user.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.NotificationsResponse{Notifications: notifications})
}

func (h *NotificationHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ok, err := h.notifications.MarkAsRead(r.Context(), id, user.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

func (h *NotificationHandlers) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFrom(r.Context())

	updated, err := h.notifications.MarkAllAsRead(r.Context(), user.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": updated})
}
