// Package dbx holds the small database plumbing shared by the user, token
// and account repositories.
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the query surface the repositories run on. Both *sql.DB and
// *sql.Tx satisfy it, so the same repository code serves plain calls and
// the transactional paths (token rotation, group-plus-detail creation).
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction: commit when fn returns nil, roll
// back on error. A panic inside fn rolls back and is rethrown.
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
