// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/migrations"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Conversations(db dbx.DBTX) conversations.Repository {
	return conversations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Messages(db dbx.DBTX) messages.Repository {
	return messages.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations to db.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	return nil
}

// sqlOpen is a seam for tests that need OpenDB without a live server.
var sqlOpen = sql.Open

// OpenDB opens a pgx-backed pool for dsn and checks that it answers.
func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
