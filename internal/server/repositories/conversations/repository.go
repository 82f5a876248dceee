// Package conversations stores conversation records. Every query that can
// see more than one row is scoped by owner.
package conversations

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	// Create inserts c (ID, UserID and Title must be set) and fills its timestamps.
	Create(ctx context.Context, c *models.Conversation) (*models.Conversation, error)
	// ListByUser returns the owner's conversations, newest first.
	ListByUser(ctx context.Context, userID string) ([]models.Conversation, error)
	// Get returns a conversation regardless of owner, or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Conversation, error)
	// Rename updates the title of a conversation owned by userID. A missing
	// conversation and someone else's conversation both yield common.ErrorNotFound.
	Rename(ctx context.Context, id, userID, title string) (*models.Conversation, error)
	// Touch bumps updated_at.
	Touch(ctx context.Context, id string) error
}
