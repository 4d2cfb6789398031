// Package repomanager builds repositories over a shared DB handle and owns
// schema migrations. Services depend on the RepositoryManager interface so
// tests can swap in fakes.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/mwodeola/mwodeola-server/internal/dbx"
	"github.com/mwodeola/mwodeola-server/internal/server/repositories/accounts"
	"github.com/mwodeola/mwodeola-server/internal/server/repositories/tokens"
	"github.com/mwodeola/mwodeola-server/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Tokens(db dbx.DBTX) tokens.Repository
	Accounts(db dbx.DBTX) accounts.Repository
}
