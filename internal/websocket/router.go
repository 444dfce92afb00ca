package websocket

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"strings"
	"time"

	"taskchat/internal/apperr"
	"taskchat/internal/metrics"
	"taskchat/internal/models"
	"taskchat/pkg/logger"
)

const persistTimeout = 5 * time.Second

// MessageStore persists chat messages and assigns their durable id.
type MessageStore interface {
	CreateMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
}

// Router parses inbound frames and fans chat messages out through the
// registry.
type Router struct {
	registry *Registry
	store    MessageStore
}

func NewRouter(registry *Registry, store MessageStore) *Router {
	return &Router{
		registry: registry,
		store:    store,
	}
}

// HandleFrame dispatches one inbound frame. Malformed frames and unknown
// types are dropped without a reply.
func (r *Router) HandleFrame(c *Client, data []byte) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Panic handling frame from user %d: %v\n%s", c.Identity.UserID, rec, debug.Stack())
		}
	}()

	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		logger.Warn("Dropping malformed frame from user %d: %v", c.Identity.UserID, err)
		return
	}

	switch env.Type {
	case models.FrameChatMessage:
		r.handleChat(c, data)
	default:
		logger.Warn("Dropping frame of unknown type %q from user %d", env.Type, c.Identity.UserID)
	}
}

func (r *Router) handleChat(c *Client, data []byte) {
	var frame models.ChatSendFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		logger.Warn("Dropping malformed chat frame from user %d: %v", c.Identity.UserID, err)
		return
	}

	if err := validateChat(&frame); err != nil {
		metrics.ChatMessages.WithLabelValues(string(frame.MessageType), "invalid").Inc()
		c.Send(models.ErrorFrame{Type: models.FrameError, Error: apperr.Message(err)})
		return
	}

	sender := c.Identity
	if (frame.SenderID != 0 && frame.SenderID != sender.UserID) ||
		(frame.SenderUsername != "" && frame.SenderUsername != sender.Username) {
		logger.Warn("Chat frame from user %d claimed sender %d (%q); using connection identity",
			sender.UserID, frame.SenderID, frame.SenderUsername)
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	saved, err := r.store.CreateMessage(ctx, &models.ChatMessage{
		Content:        frame.Content,
		SenderID:       sender.UserID,
		SenderUsername: sender.Username,
		TargetID:       frame.TargetID,
		MessageType:    frame.MessageType,
	})
	if err != nil {
		logger.Error("Error saving message from user %d: %v", sender.UserID, err)
		metrics.ChatMessages.WithLabelValues(string(frame.MessageType), "store_error").Inc()
		c.Send(models.ErrorFrame{Type: models.FrameError, Error: "failed to save message"})
		return
	}

	username := saved.SenderUsername
	if username == "" {
		username = sender.Username
	}
	event := models.ChatEventFrame{
		Type:           models.FrameChatMessage,
		ID:             saved.ID,
		Content:        saved.Content,
		SenderID:       sender.UserID,
		SenderUsername: username,
		TargetID:       saved.TargetID,
		MessageType:    saved.MessageType,
		Timestamp:      saved.CreatedAt.UTC().Format(time.RFC3339),
	}

	delivered := r.fanOut(event)
	metrics.ChatMessages.WithLabelValues(string(frame.MessageType), "delivered").Inc()
	logger.Debug("Chat message %d from user %d delivered to %d connections", saved.ID, sender.UserID, delivered)
}

// fanOut delivers event and returns the number of connections reached.
func (r *Router) fanOut(event models.ChatEventFrame) int {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Error marshaling chat event: %v", err)
		return 0
	}

	switch event.MessageType {
	case models.MessageTypeChannel:
		// No channel membership exists yet; channel traffic reaches everyone.
		return r.registry.BroadcastAll(data)
	case models.MessageTypeDirect:
		n := r.registry.SendToUser(event.TargetID, data)
		if event.TargetID != event.SenderID {
			n += r.registry.SendToUser(event.SenderID, data)
		}
		return n
	}
	return 0
}

func validateChat(frame *models.ChatSendFrame) error {
	if strings.TrimSpace(frame.Content) == "" {
		return apperr.Validation("chat message", "content must not be empty")
	}
	if !frame.MessageType.Valid() {
		return apperr.Validation("chat message", "messageType must be channel or direct")
	}
	if frame.TargetID <= 0 {
		return apperr.Validation("chat message", "targetId must be positive")
	}
	return nil
}
