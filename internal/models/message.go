package models

import "time"

type MessageType string

const (
	MessageTypeChannel MessageType = "channel"
	MessageTypeDirect  MessageType = "direct"
)

func (t MessageType) Valid() bool {
	return t == MessageTypeChannel || t == MessageTypeDirect
}

// ChatMessage is a persisted chat line. ID and CreatedAt are assigned by
// the store.
type ChatMessage struct {
	ID             int64       `json:"id"`
	Content        string      `json:"content"`
	SenderID       int64       `json:"sender_id"`
	SenderUsername string      `json:"sender_username"`
	TargetID       int64       `json:"target_id"`
	MessageType    MessageType `json:"message_type"`
	CreatedAt      time.Time   `json:"created_at"`
}
