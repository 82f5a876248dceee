package messages

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, m *models.Message) (*models.Message, error) {
	if !m.Sender.Valid() {
		return nil, fmt.Errorf("unknown sender %q", m.Sender)
	}
	query := `
		INSERT INTO messages (id, conversation_id, sender, content)
		VALUES ($1, $2, $3, $4)
		RETURNING seq, created_at
	`
	err := r.db.QueryRowContext(ctx, query, m.ID, m.ConversationID, string(m.Sender), m.Content).
		Scan(&m.Seq, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

// ListByConversation orders by timestamp and falls back to insertion order
// for messages stamped within the same clock tick.
func (r *PostgresRepository) ListByConversation(ctx context.Context, conversationID string) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, sender, content, created_at, seq
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, seq ASC
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Message, 0)
	for rows.Next() {
		var (
			m      models.Message
			sender string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &sender, &m.Content, &m.CreatedAt, &m.Seq); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Sender = models.Sender(sender)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}
