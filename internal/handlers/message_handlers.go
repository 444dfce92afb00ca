package handlers

import (
	"net/http"

	"taskchat/internal/services"
)

type MessageHandlers struct {
	messages *services.MessageService
}

func NewMessageHandlers(messages *services.MessageService) *MessageHandlers {
	return &MessageHandlers{messages: messages}
}

func (h *MessageHandlers) Channel(w http.ResponseWriter, r *http.Request) {
	channelID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	messages, err := h.messages.ChannelHistory(r.Context(), channelID, queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandlers) Direct(w http.ResponseWriter, r *http.Request) {
	user, _ := IdentityFrom(r.Context())

	otherID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}

	messages, err := h.messages.DirectHistory(r.Context(), user.UserID, otherID, queryLimit(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
