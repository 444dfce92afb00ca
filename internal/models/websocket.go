package models

type FrameType string

const (
	FrameChatMessage  FrameType = "CHAT_MESSAGE"
	FrameNotification FrameType = "notification"
	FrameError        FrameType = "error"
)

// Envelope is decoded first to pick the handler for an inbound frame.
type Envelope struct {
	Type FrameType `json:"type"`
}

// ChatSendFrame is the inbound chat frame sent by a client.
type ChatSendFrame struct {
	Type           FrameType   `json:"type"`
	TargetID       int64       `json:"targetId"`
	MessageType    MessageType `json:"messageType"`
	Content        string      `json:"content"`
	SenderID       int64       `json:"senderId"`
	SenderUsername string      `json:"senderUsername"`
}

// ChatEventFrame is the outbound chat frame delivered to recipients.
type ChatEventFrame struct {
	Type           FrameType   `json:"type"`
	ID             int64       `json:"id"`
	Content        string      `json:"content"`
	SenderID       int64       `json:"senderId"`
	SenderUsername string      `json:"senderUsername"`
	TargetID       int64       `json:"targetId"`
	MessageType    MessageType `json:"messageType"`
	Timestamp      string      `json:"timestamp"`
}

type NotificationFrame struct {
	Type FrameType     `json:"type"`
	Data *Notification `json:"data"`
}

type ErrorFrame struct {
	Type  FrameType `json:"type"`
	Error string    `json:"error"`
}
