// Package users stores accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills its ID and CreatedAt. A taken username or
	// email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin finds a user whose username or email equals identifier.
	GetUserByLogin(ctx context.Context, identifier string) (*models.User, error)
}
