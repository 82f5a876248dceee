package conversations

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var convColumns = []string{"id", "user_id", "title", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+conversations\s*\(id,\s*user_id,\s*title\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+created_at,\s*updated_at`).
		WithArgs("c1", "u1", "New Chat").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	got, err := repo.Create(context.Background(), &models.Conversation{ID: "c1", UserID: "u1", Title: "New Chat"})
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(now))
	assert.True(t, got.UpdatedAt.Equal(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+conversations`).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.Conversation{ID: "c1", UserID: "u1", Title: "t"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListByUser_NewestFirst(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	rows := sqlmock.NewRows(convColumns).
		AddRow("c2", "u1", "second", t2, t2).
		AddRow("c1", "u1", "first", t1, t1)

	mock.ExpectQuery(`(?s)SELECT\s+id,\s*user_id,\s*title,\s*created_at,\s*updated_at\s+FROM\s+conversations\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC`).
		WithArgs("u1").
		WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].ID)
	assert.Equal(t, "c1", got[1].ID)
}

func TestListByUser_EmptyIsNotNil(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+conversations`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(convColumns))

	got, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListByUser_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(convColumns).
		AddRow("c1", "u1", "t", time.Now(), time.Now()).
		RowError(0, errors.New("broken row"))
	mock.ExpectQuery(`FROM\s+conversations`).WithArgs("u1").WillReturnRows(rows)

	_, err := repo.ListByUser(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)SELECT\s+id,\s*user_id,\s*title,\s*created_at,\s*updated_at\s+FROM\s+conversations\s+WHERE\s+id\s*=\s*\$1`

	mock.ExpectQuery(q).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(convColumns).AddRow("c1", "u1", "hello", time.Now(), time.Now()))
	got, err := repo.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "hello", got.Title)

	mock.ExpectQuery(q).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err = repo.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	mock.ExpectQuery(q).WithArgs("c1").WillReturnError(errors.New("db err"))
	_, err = repo.Get(context.Background(), "c1")
	assert.Regexp(t, `db error: .*db err`, err.Error())
}

func TestRename_ScopedByOwner(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)UPDATE\s+conversations\s+SET\s+title\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s+RETURNING`

	mock.ExpectQuery(q).WithArgs("c1", "u1", "Renamed").
		WillReturnRows(sqlmock.NewRows(convColumns).AddRow("c1", "u1", "Renamed", time.Now(), time.Now()))
	got, err := repo.Rename(context.Background(), "c1", "u1", "Renamed")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	mock.ExpectQuery(q).WithArgs("c1", "intruder", "Mine").WillReturnError(sql.ErrNoRows)
	_, err = repo.Rename(context.Background(), "c1", "intruder", "Mine")
	assert.True(t, errors.Is(err, common.ErrorNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTouch(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)UPDATE\s+conversations\s+SET\s+updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1`

	mock.ExpectExec(q).WithArgs("c1").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Touch(context.Background(), "c1"))

	mock.ExpectExec(q).WithArgs("c1").WillReturnError(errors.New("db err"))
	err := repo.Touch(context.Background(), "c1")
	assert.Regexp(t, `db error: .*db err`, err.Error())
}
