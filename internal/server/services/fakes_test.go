package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/ai"
	"github.com/dmitrijs2005/gophchat/internal/server/config"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	conversationsrepo "github.com/dmitrijs2005/gophchat/internal/server/repositories/conversations"
	messagesrepo "github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	refreshtokensrepo "github.com/dmitrijs2005/gophchat/internal/server/repositories/refreshtokens"
	usersrepo "github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	return cfg
}

// --- in-memory repositories ---

type memUsers struct {
	mu        sync.Mutex
	byID      map[string]*models.User
	createErr error
	getErr    error
}

func (f *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.byID == nil {
		f.byID = map[string]*models.User{}
	}
	for _, x := range f.byID {
		if x.Username == u.Username || x.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.ID = "user-" + u.Username
	cp.CreatedAt = time.Now()
	f.byID[cp.ID] = &cp
	return &cp, nil
}

func (f *memUsers) GetUserByLogin(_ context.Context, identifier string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, x := range f.byID {
		if x.Username == identifier || x.Email == identifier {
			return x, nil
		}
	}
	return nil, common.ErrorNotFound
}

type memTokens struct {
	mu         sync.Mutex
	tokens     map[string]*models.RefreshToken
	createErr  error
	consumeErr error
}

func (f *memTokens) Create(_ context.Context, userID, token string, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.tokens == nil {
		f.tokens = map[string]*models.RefreshToken{}
	}
	f.tokens[token] = &models.RefreshToken{UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (f *memTokens) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.consumeErr != nil {
		return nil, f.consumeErr
	}
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(f.tokens, token)
	return t, nil
}

func (f *memTokens) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, t := range f.tokens {
		if t.Expires.Before(now) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

type memConversations struct {
	mu        sync.Mutex
	byID      map[string]*models.Conversation
	touched   map[string]int
	createErr error
	getErr    error
}

func (f *memConversations) put(c models.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.byID == nil {
		f.byID = map[string]*models.Conversation{}
	}
	f.byID[c.ID] = &c
}

func (f *memConversations) Create(_ context.Context, c *models.Conversation) (*models.Conversation, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	cp := *c
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.put(cp)
	return &cp, nil
}

func (f *memConversations) ListByUser(_ context.Context, userID string) ([]models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Conversation{}
	for _, c := range f.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *memConversations) Get(_ context.Context, id string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *memConversations) Rename(_ context.Context, id, userID, title string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok || c.UserID != userID {
		return nil, common.ErrorNotFound
	}
	c.Title = title
	c.UpdatedAt = time.Now()
	cp := *c
	return &cp, nil
}

func (f *memConversations) Touch(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.touched == nil {
		f.touched = map[string]int{}
	}
	f.touched[id]++
	return nil
}

type memMessages struct {
	mu        sync.Mutex
	msgs      []models.Message
	seq       int64
	appendErr func(m *models.Message) error
	listErr   error
}

func (f *memMessages) Append(_ context.Context, m *models.Message) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		if err := f.appendErr(m); err != nil {
			return nil, err
		}
	}
	f.seq++
	cp := *m
	cp.Seq = f.seq
	cp.CreatedAt = time.Unix(0, 0).Add(time.Duration(f.seq) * time.Second)
	f.msgs = append(f.msgs, cp)
	return &cp, nil
}

func (f *memMessages) ListByConversation(_ context.Context, conversationID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []models.Message{}
	for _, m := range f.msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeRepoManager struct {
	users         *memUsers
	tokens        *memTokens
	conversations *memConversations
	messages      *memMessages
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:         &memUsers{},
		tokens:        &memTokens{},
		conversations: &memConversations{},
		messages:      &memMessages{},
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return m.users }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokensrepo.Repository {
	return m.tokens
}
func (m *fakeRepoManager) Conversations(dbx.DBTX) conversationsrepo.Repository {
	return m.conversations
}
func (m *fakeRepoManager) Messages(dbx.DBTX) messagesrepo.Repository { return m.messages }

// --- provider ---

type providerCall struct {
	history   []ai.Turn
	prompt    string
	maxTokens int
	deadline  bool
}

type fakeProvider struct {
	mu         sync.Mutex
	configured bool
	reply      string
	err        error
	calls      []providerCall
	block      chan struct{}
}

func (p *fakeProvider) Configured() bool { return p.configured }

func (p *fakeProvider) Generate(ctx context.Context, history []ai.Turn, prompt string, maxTokens int) (string, error) {
	if p.block != nil {
		<-p.block
	}
	_, hasDeadline := ctx.Deadline()
	p.mu.Lock()
	p.calls = append(p.calls, providerCall{history: history, prompt: prompt, maxTokens: maxTokens, deadline: hasDeadline})
	p.mu.Unlock()
	return p.reply, p.err
}

var nopLogger logging.Logger = logging.Nop{}
