package messages

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	appendQuery = `(?s)INSERT\s+INTO\s+messages\s*\(id,\s*conversation_id,\s*sender,\s*content\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+seq,\s*created_at`
	listQuery   = `(?s)SELECT\s+id,\s*conversation_id,\s*sender,\s*content,\s*created_at,\s*seq\s+FROM\s+messages\s+WHERE\s+conversation_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+ASC,\s*seq\s+ASC`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestAppend_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(appendQuery).
		WithArgs("m1", "c1", "user", "hello").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "created_at"}).AddRow(int64(7), now))

	got, err := repo.Append(context.Background(), &models.Message{ID: "m1", ConversationID: "c1", Sender: models.SenderUser, Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.Seq)
	assert.True(t, got.CreatedAt.Equal(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_UnknownSender(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.Append(context.Background(), &models.Message{ID: "m1", ConversationID: "c1", Sender: models.Sender("model"), Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown sender "model"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(appendQuery).
		WithArgs("m1", "c1", "ai", "reply").
		WillReturnError(errors.New("db down"))

	_, err := repo.Append(context.Background(), &models.Message{ID: "m1", ConversationID: "c1", Sender: models.SenderAI, Content: "reply"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListByConversation_Ordered(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "conversation_id", "sender", "content", "created_at", "seq"}).
		AddRow("m1", "c1", "user", "hi", ts, int64(1)).
		AddRow("m2", "c1", "ai", "hello!", ts, int64(2))

	mock.ExpectQuery(listQuery).WithArgs("c1").WillReturnRows(rows)

	got, err := repo.ListByConversation(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.SenderUser, got[0].Sender)
	assert.Equal(t, models.SenderAI, got[1].Sender)
	assert.Equal(t, "hello!", got[1].Content)
	assert.Less(t, got[0].Seq, got[1].Seq)
}

func TestListByConversation_Empty(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQuery).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conversation_id", "sender", "content", "created_at", "seq"}))

	got, err := repo.ListByConversation(context.Background(), "c1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListByConversation_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQuery).WithArgs("c1").WillReturnError(errors.New("db err"))

	_, err := repo.ListByConversation(context.Background(), "c1")
	assert.Regexp(t, `db error: .*db err`, err.Error())
}

func TestListByConversation_ScanError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "conversation_id", "sender", "content", "created_at", "seq"}).
		AddRow("m1", "c1", "user", "hi", "not-a-time", int64(1))
	mock.ExpectQuery(listQuery).WithArgs("c1").WillReturnRows(rows)

	_, err := repo.ListByConversation(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}
