package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

const (
	msgUserIDMismatch       = "Access denied. User ID mismatch."
	msgInvalidConversation  = "Invalid Conversation ID format."
	msgEmptyTitle           = "Title cannot be empty."
	msgRenameNotFound       = "Conversation not found or unauthorized."
	msgConversationNotFound = "Conversation not found"
	msgNotYourConversation  = "Access denied. Not your conversation."
)

// ConversationService lists, creates and renames a user's conversations.
type ConversationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewConversationService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger) *ConversationService {
	return &ConversationService{db: db, repomanager: m, logger: logger.With("service", "conversations")}
}

// List returns the caller's conversations, newest first. pathUserID is the
// user named in the request and must equal the caller.
func (s *ConversationService) List(ctx context.Context, callerID, pathUserID string) ([]models.Conversation, error) {
	if callerID != pathUserID {
		return nil, common.NewUserError(common.ErrorForbidden, msgUserIDMismatch)
	}
	list, err := s.repomanager.Conversations(s.db).ListByUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("error listing conversations: %w", err)
	}
	return list, nil
}

// Create starts an empty conversation. A blank title becomes "New Chat".
func (s *ConversationService) Create(ctx context.Context, callerID, pathUserID, title string) (*models.Conversation, error) {
	if callerID != pathUserID {
		return nil, common.NewUserError(common.ErrorForbidden, msgUserIDMismatch)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultConversationTitle
	}

	c, err := s.repomanager.Conversations(s.db).Create(ctx, &models.Conversation{
		ID:     uuid.NewString(),
		UserID: callerID,
		Title:  title,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}
	s.logger.Info(ctx, "conversation created", "conversation_id", c.ID, "user_id", callerID)
	return c, nil
}

// Rename sets a new title. Someone else's conversation is reported exactly
// like a missing one.
func (s *ConversationService) Rename(ctx context.Context, callerID, conversationID, title string) (*models.Conversation, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, common.NewUserError(common.ErrorValidation, msgEmptyTitle)
	}

	c, err := s.repomanager.Conversations(s.db).Rename(ctx, conversationID, callerID, title)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewUserError(common.ErrorNotFound, msgRenameNotFound)
		}
		return nil, fmt.Errorf("error renaming conversation: %w", err)
	}
	return c, nil
}

func validateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.NewUserError(common.ErrorValidation, msgInvalidConversation)
	}
	return nil
}

// authorizeConversation loads a conversation and checks the caller owns it.
func authorizeConversation(ctx context.Context, m repomanager.RepositoryManager, db *sql.DB, conversationID, callerID string) (*models.Conversation, error) {
	if err := validateConversationID(conversationID); err != nil {
		return nil, err
	}
	c, err := m.Conversations(db).Get(ctx, conversationID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewUserError(common.ErrorNotFound, msgConversationNotFound)
		}
		return nil, fmt.Errorf("error loading conversation: %w", err)
	}
	if !c.OwnedBy(callerID) {
		return nil, common.NewUserError(common.ErrorForbidden, msgNotYourConversation)
	}
	return c, nil
}
