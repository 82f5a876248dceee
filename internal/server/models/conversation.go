package models

import "time"

// DefaultConversationTitle is used when a conversation is created without a title.
const DefaultConversationTitle = "New Chat"

// Conversation is a titled chat thread owned by exactly one user.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OwnedBy reports whether userID is the conversation owner.
func (c *Conversation) OwnedBy(userID string) bool {
	return c.UserID == userID
}
