package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a single direct message between two users. ConversationID is
// derived from the participant pair and doubles as the live-room name.
type Message struct {
	ID             uuid.UUID    `json:"id"`
	ConversationID string       `json:"conversationId"`
	SenderID       uuid.UUID    `json:"senderId"`
	ReceiverID     uuid.UUID    `json:"receiverId"`
	Body           string       `json:"body"`
	SentAt         time.Time    `json:"sentAt"`
	IsRead         bool         `json:"isRead"`
	Sender         *UserSummary `json:"sender,omitempty"`
	Receiver       *UserSummary `json:"receiver,omitempty"`
}

// Conversation is a derived view, never persisted: the latest message
// exchanged with one counterpart plus an unread flag for the viewer.
type Conversation struct {
	ConversationID string       `json:"conversationId"`
	Counterpart    *UserSummary `json:"counterpart"`
	LastMessage    *Message     `json:"lastMessage"`
	Unread         bool         `json:"unread"`
}
