// Package messages stores conversation turns. Messages are append-only.
package messages

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	// Append inserts m (ID, ConversationID, Sender and Content must be set)
	// and fills Seq and CreatedAt.
	Append(ctx context.Context, m *models.Message) (*models.Message, error)
	// ListByConversation returns the full transcript in chronological order.
	ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error)
}
