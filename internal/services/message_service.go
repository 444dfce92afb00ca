package services

import (
	"context"

	"taskchat/internal/apperr"
	"taskchat/internal/database"
	"taskchat/internal/models"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// MessageService serves chat history. Live delivery happens in the
// websocket router.
type MessageService struct {
	db database.MessageRepository
}

func NewMessageService(db database.MessageRepository) *MessageService {
	return &MessageService{db: db}
}

func (s *MessageService) ChannelHistory(ctx context.Context, channelID int64, limit int) ([]*models.ChatMessage, error) {
	if channelID <= 0 {
		return nil, apperr.Validation("channel history", "invalid channel id")
	}
	return s.db.ChannelMessages(ctx, channelID, historyLimit(limit))
}

// DirectHistory returns the conversation between userA and userB.
func (s *MessageService) DirectHistory(ctx context.Context, userA, userB int64, limit int) ([]*models.ChatMessage, error) {
	if userA <= 0 || userB <= 0 {
		return nil, apperr.Validation("direct history", "invalid user id")
	}
	return s.db.DirectMessages(ctx, userA, userB, historyLimit(limit))
}

func historyLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	}
	return limit
}
