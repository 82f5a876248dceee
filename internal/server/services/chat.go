package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/ai"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Replies stored in place of a model answer when the provider cannot give one.
const (
	ReplyNotConfigured = "AI service is not configured. Please ensure the API key is set."
	ReplyEmpty         = "I received an empty response from the AI. Please try again."
	ReplyBadCredential = "Issue with AI service. Please check your API key."
	replyConnectPrefix = "I encountered an issue connecting to the AI. Please try again. Details: "
)

var credentialErrorMarkers = []string{
	"Error fetching from link",
	"Invalid API key",
	"API key not valid",
	"API_KEY_INVALID",
}

// ChatService runs conversation turns: it stores the user's message, asks
// the model for a reply using a bounded window of prior messages and stores
// that reply.
type ChatService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	provider    ai.Provider
	logger      logging.Logger

	windowSize int
	maxTokens  int
	aiTimeout  time.Duration

	locks *turnLocks
}

func NewChatService(db *sql.DB, m repomanager.RepositoryManager, provider ai.Provider, cfg *config.Config, logger logging.Logger) *ChatService {
	return &ChatService{
		db:          db,
		repomanager: m,
		provider:    provider,
		logger:      logger.With("service", "chat"),
		windowSize:  cfg.ContextWindowSize,
		maxTokens:   cfg.AIMaxOutputTokens,
		aiTimeout:   cfg.AIRequestTimeout,
		locks:       newTurnLocks(),
	}
}

// ListMessages returns the full transcript of a conversation the caller owns.
func (s *ChatService) ListMessages(ctx context.Context, conversationID, callerID string) ([]models.Message, error) {
	if _, err := authorizeConversation(ctx, s.repomanager, s.db, conversationID, callerID); err != nil {
		return nil, err
	}
	msgs, err := s.repomanager.Messages(s.db).ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	return msgs, nil
}

// SubmitTurn appends the user's text and exactly one AI reply, then returns
// the whole transcript. Provider failures are stored as fallback replies and
// never returned as errors.
func (s *ChatService) SubmitTurn(ctx context.Context, conversationID, callerID, text string) ([]models.Message, error) {
	if _, err := authorizeConversation(ctx, s.repomanager, s.db, conversationID, callerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, common.NewUserError(common.ErrorValidation, "Message cannot be empty.")
	}

	unlock, err := s.locks.lock(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// From here on the turn completes even if the caller goes away.
	ctx = context.WithoutCancel(ctx)

	userMsg, err := s.appendMessage(ctx, conversationID, models.SenderUser, text)
	if err != nil {
		return nil, err
	}

	history, err := s.repomanager.Messages(s.db).ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error loading history: %w", err)
	}
	history = excludeMessage(history, userMsg.ID)

	reply := s.generateReply(ctx, conversationID, contextWindow(history, s.windowSize), text)

	if _, err := s.appendMessage(ctx, conversationID, models.SenderAI, reply); err != nil {
		return nil, err
	}

	msgs, err := s.repomanager.Messages(s.db).ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("error listing messages: %w", err)
	}
	return msgs, nil
}

func (s *ChatService) generateReply(ctx context.Context, conversationID string, window []models.Message, prompt string) string {
	if !s.provider.Configured() {
		s.logger.Warn(ctx, "ai provider not configured", "conversation_id", conversationID)
		return ReplyNotConfigured
	}

	aiCtx := ctx
	if s.aiTimeout > 0 {
		var cancel context.CancelFunc
		aiCtx, cancel = context.WithTimeout(ctx, s.aiTimeout)
		defer cancel()
	}

	start := time.Now()
	text, err := s.provider.Generate(aiCtx, ai.HistoryFrom(window), prompt, s.maxTokens)
	reply := resolveReply(text, err)
	if err != nil {
		s.logger.Warn(ctx, "ai provider failed", "conversation_id", conversationID, "error", err)
	} else {
		s.logger.Debug(ctx, "ai reply received", "conversation_id", conversationID,
			"history", len(window), "elapsed", time.Since(start))
	}
	return reply
}

// appendMessage stores one message and bumps the conversation's updated_at
// in a single commit.
func (s *ChatService) appendMessage(ctx context.Context, conversationID string, sender models.Sender, content string) (*models.Message, error) {
	var stored *models.Message
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		m, err := s.repomanager.Messages(tx).Append(ctx, &models.Message{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			Sender:         sender,
			Content:        content,
		})
		if err != nil {
			return err
		}
		if err := s.repomanager.Conversations(tx).Touch(ctx, conversationID); err != nil {
			return err
		}
		stored = m
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error storing %s message: %w", sender, err)
	}
	return stored, nil
}

// resolveReply turns a provider result into the text that gets stored.
func resolveReply(text string, err error) string {
	if err == nil {
		if strings.TrimSpace(text) == "" {
			return ReplyEmpty
		}
		return text
	}
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return ReplyNotConfigured
	case errors.Is(err, ai.ErrEmptyResponse):
		return ReplyEmpty
	case isCredentialError(err):
		return ReplyBadCredential
	}
	return replyConnectPrefix + err.Error()
}

func isCredentialError(err error) bool {
	msg := err.Error()
	for _, m := range credentialErrorMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// contextWindow keeps the trailing n messages in their original order.
func contextWindow(history []models.Message, n int) []models.Message {
	if n <= 0 {
		return nil
	}
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

func excludeMessage(msgs []models.Message, id string) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// turnLocks serializes turns per conversation. Entries are reference
// counted and removed once nobody holds or waits for them.
type turnLocks struct {
	mu    sync.Mutex
	locks map[string]*turnLock
}

type turnLock struct {
	sem  chan struct{}
	refs int
}

func newTurnLocks() *turnLocks {
	return &turnLocks{locks: make(map[string]*turnLock)}
}

// lock waits for the key's lock or for ctx to end, whichever comes first.
func (l *turnLocks) lock(ctx context.Context, key string) (unlock func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	tl, ok := l.locks[key]
	if !ok {
		tl = &turnLock{sem: make(chan struct{}, 1)}
		l.locks[key] = tl
	}
	tl.refs++
	l.mu.Unlock()

	select {
	case tl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, tl)
		return nil, ctx.Err()
	}

	return func() {
		<-tl.sem
		l.release(key, tl)
	}, nil
}

func (l *turnLocks) release(key string, tl *turnLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	tl.refs--
	if tl.refs == 0 {
		delete(l.locks, key)
	}
}

func (l *turnLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
