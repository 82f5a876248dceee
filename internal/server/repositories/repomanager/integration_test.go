//go:build integration

package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gophchat"),
		postgres.WithUsername("gophchat"),
		postgres.WithPassword("password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		log.Printf("failed to start container: %s", err)
		os.Exit(1)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("failed to get connection string: %v", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	testDB, err = OpenDB(ctx, dsn)
	if err != nil {
		log.Printf("failed to open db: %v", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	if err := NewPostgresRepositoryManager().RunMigrations(ctx, testDB); err != nil {
		log.Printf("failed to migrate: %v", err)
		_ = container.Terminate(ctx)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Close()
	if err := testcontainers.TerminateContainer(container); err != nil {
		log.Printf("failed to terminate container: %s", err)
	}
	os.Exit(code)
}

func createUser(t *testing.T, m RepositoryManager, name string) *models.User {
	t.Helper()
	u, err := m.Users(testDB).Create(context.Background(), &models.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: []byte("hash"),
	})
	require.NoError(t, err)
	return u
}

func TestIntegration_UsersUniqueness(t *testing.T) {
	ctx := context.Background()
	m := NewPostgresRepositoryManager()

	u := createUser(t, m, "alice")
	require.NotEmpty(t, u.ID)

	_, err := m.Users(testDB).Create(ctx, &models.User{Username: "alice2", Email: "alice@example.com", PasswordHash: []byte("x")})
	assert.True(t, errors.Is(err, common.ErrorAlreadyExists))

	byEmail, err := m.Users(testDB).GetUserByLogin(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byName, err := m.Users(testDB).GetUserByLogin(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
}

func TestIntegration_ConversationAndMessages(t *testing.T) {
	ctx := context.Background()
	m := NewPostgresRepositoryManager()
	owner := createUser(t, m, "bob")
	other := createUser(t, m, "carol")

	convs := m.Conversations(testDB)
	c, err := convs.Create(ctx, &models.Conversation{ID: uuid.NewString(), UserID: owner.ID, Title: models.DefaultConversationTitle})
	require.NoError(t, err)

	_, err = convs.Rename(ctx, c.ID, other.ID, "stolen")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	renamed, err := convs.Rename(ctx, c.ID, owner.ID, "Trip plans")
	require.NoError(t, err)
	assert.Equal(t, "Trip plans", renamed.Title)

	msgs := m.Messages(testDB)
	for i, s := range []models.Sender{models.SenderUser, models.SenderAI, models.SenderUser} {
		_, err := msgs.Append(ctx, &models.Message{ID: uuid.NewString(), ConversationID: c.ID, Sender: s, Content: string(rune('a' + i))})
		require.NoError(t, err)
	}

	got, err := msgs.ListByConversation(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "a", got[0].Content)
	assert.Equal(t, "c", got[2].Content)
	assert.Equal(t, models.SenderAI, got[1].Sender)

	_, err = testDB.ExecContext(ctx, `INSERT INTO messages (id, conversation_id, sender, content) VALUES ($1, $2, 'model', 'x')`, uuid.NewString(), c.ID)
	assert.Error(t, err, "sender check constraint")

	list, err := convs.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestIntegration_RefreshTokensConsumeOnce(t *testing.T) {
	ctx := context.Background()
	m := NewPostgresRepositoryManager()
	u := createUser(t, m, "dave")

	repo := m.RefreshTokens(testDB)
	require.NoError(t, repo.Create(ctx, u.ID, "tok-1", time.Hour))
	require.NoError(t, repo.Create(ctx, u.ID, "tok-old", -time.Hour))

	rt, err := repo.Consume(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, rt.UserID)

	_, err = repo.Consume(ctx, "tok-1")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
}
