package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mwodeola/mwodeola-server/internal/common"
	"github.com/mwodeola/mwodeola-server/internal/dbx"
	"github.com/mwodeola/mwodeola-server/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateOutstanding(ctx context.Context, userID, jti, token string, expiresAt time.Time) error {

	query :=
		`INSERT INTO outstanding_tokens (user_id, jti, token, expires_at)
         VALUES ($1, $2, $3, $4)
		 `

	if _, err := r.db.ExecContext(ctx, query, userID, jti, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) LatestOutstanding(ctx context.Context, userID string) (*models.OutstandingToken, error) {

	query :=
		`SELECT id, user_id, jti, token, created_at, expires_at FROM outstanding_tokens
		 WHERE user_id = $1
		 ORDER BY id DESC
		 LIMIT 1
		 `

	token := &models.OutstandingToken{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&token.ID, &token.UserID, &token.JTI, &token.Token, &token.CreatedAt, &token.ExpiresAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return token, nil
}

func (r *PostgresRepository) ListOutstanding(ctx context.Context, userID string, limit int) ([]*models.OutstandingToken, error) {

	query :=
		`SELECT o.id, o.user_id, o.jti, o.token, o.created_at, o.expires_at FROM outstanding_tokens o
		 WHERE o.user_id = $1
		   AND NOT EXISTS (SELECT 1 FROM blacklisted_tokens b WHERE b.jti = o.jti)
		 ORDER BY o.id
		 LIMIT $2
		 `

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var tokens []*models.OutstandingToken
	for rows.Next() {
		t := &models.OutstandingToken{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.JTI, &t.Token, &t.CreatedAt, &t.ExpiresAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return tokens, nil
}

func (r *PostgresRepository) AddToBlacklist(ctx context.Context, jti string) error {

	query :=
		`INSERT INTO blacklisted_tokens (jti)
         VALUES ($1)
		 ON CONFLICT (jti) DO NOTHING
		 `

	if _, err := r.db.ExecContext(ctx, query, jti); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) IsBlacklisted(ctx context.Context, jti string) (bool, error) {

	query := `SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE jti = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, jti).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	return exists, nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) error {

	query :=
		`DELETE FROM blacklisted_tokens b
		 USING outstanding_tokens o
		 WHERE b.jti = o.jti AND o.expires_at < $1
		 `

	if _, err := r.db.ExecContext(ctx, query, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	query = `DELETE FROM outstanding_tokens WHERE expires_at < $1`

	if _, err := r.db.ExecContext(ctx, query, now); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
