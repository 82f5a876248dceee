// Package refreshtokens declares the server-side repository contract for
// refresh tokens in persistent storage.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// Repository issues, consumes and purges refresh tokens.
type Repository interface {
	// Create stores a new refresh token for userID with an expiry of now+validity.
	Create(ctx context.Context, userID string, token string, validity time.Duration) error

	// Consume deletes the token and returns what it was bound to, so a token
	// can be exchanged at most once. Unknown tokens yield common.ErrorNotFound.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteExpired removes every token whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
