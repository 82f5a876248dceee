package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophchat/internal/dbx"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/conversations"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophchat/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a handle, so services can
// use the same code against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Conversations(db dbx.DBTX) conversations.Repository
	Messages(db dbx.DBTX) messages.Repository
}
