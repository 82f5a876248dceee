package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

// GetUserByLogin matches the identifier against the username as typed and
// against the email lowercased, mirroring how both are stored.
func (r *PostgresRepository) GetUserByLogin(ctx context.Context, identifier string) (*models.User, error) {
	query :=
		`SELECT id, username, email, password_hash, created_at FROM users
		 WHERE username = $1 OR email = $2
		 LIMIT 1`

	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, identifier, strings.ToLower(identifier)).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}
