package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

// PostgresRepository implements conversation storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, c *models.Conversation) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (id, user_id, title)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRowContext(ctx, query, c.ID, c.UserID, c.Title).Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Conversation, 0)
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Conversation, error) {
	query := `
		SELECT id, user_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Rename(ctx context.Context, id, userID, title string) (*models.Conversation, error) {
	query := `
		UPDATE conversations
		SET title = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, title, created_at, updated_at
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, userID, title))
}

func (r *PostgresRepository) Touch(ctx context.Context, id string) error {
	query := `
		UPDATE conversations
		SET updated_at = now()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Conversation, error) {
	c := &models.Conversation{}
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}
