package models

import "time"

// Sender tags who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// Valid reports whether s is one of the two known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderAI
}

// Message is one immutable turn of a conversation. Seq breaks ties between
// messages created within the same clock tick and is not exposed.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         Sender    `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"timestamp"`
	Seq            int64     `json:"-"`
}
