package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

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

const groupColumns = `id, user_id, sns_id, group_name, app_package_name, web_url, icon_type, icon_image_url, is_favorite, created_at`

func (r *PostgresRepository) CreateGroup(ctx context.Context, group *models.AccountGroup) (*models.AccountGroup, error) {

	query :=
		`INSERT INTO account_groups (user_id, sns_id, group_name, app_package_name, web_url, icon_type, icon_image_url, is_favorite)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		group.UserID, group.SNSID, group.GroupName, group.AppPackageName,
		group.WebURL, group.IconType, group.IconImageURL, group.IsFavorite).Scan(&group.ID)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, common.ErrDuplicated
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return group, nil
}

func (r *PostgresRepository) GetGroup(ctx context.Context, id string) (*models.AccountGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM account_groups WHERE id = $1`
	return scanGroup(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) ListGroups(ctx context.Context, userID string) ([]*models.AccountGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM account_groups WHERE user_id = $1 ORDER BY group_name`
	return r.queryGroups(ctx, query, userID)
}

func (r *PostgresRepository) SearchGroups(ctx context.Context, userID, nameSubstring string) ([]*models.AccountGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM account_groups WHERE user_id = $1 AND group_name ILIKE '%' || $2 || '%' ORDER BY group_name`
	return r.queryGroups(ctx, query, userID, nameSubstring)
}

func (r *PostgresRepository) DeleteGroup(ctx context.Context, id string) error {

	query := `DELETE FROM account_groups WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) CreateDetail(ctx context.Context, detail *models.AccountDetail) (*models.AccountDetail, error) {

	query :=
		`INSERT INTO account_details (group_id, login_id, password_cipher, pin_cipher, pattern_cipher, memo)
         VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		detail.GroupID, detail.LoginID, detail.PasswordCipher,
		detail.PINCipher, detail.PatternCipher, detail.Memo).Scan(&detail.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return detail, nil
}

func (r *PostgresRepository) GetDetail(ctx context.Context, id string) (*models.AccountDetail, error) {

	query :=
		`SELECT id, group_id, login_id, password_cipher, pin_cipher, pattern_cipher, memo, views, created_at, last_confirmed_at
		 FROM account_details
		 WHERE id = $1
		 `

	detail := &models.AccountDetail{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&detail.ID, &detail.GroupID, &detail.LoginID, &detail.PasswordCipher,
		&detail.PINCipher, &detail.PatternCipher, &detail.Memo, &detail.Views,
		&detail.CreatedAt, &detail.LastConfirmedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return detail, nil
}

func (r *PostgresRepository) UpdateDetail(ctx context.Context, detail *models.AccountDetail) error {

	query :=
		`UPDATE account_details
		 SET login_id = $2, password_cipher = $3, pin_cipher = $4, pattern_cipher = $5, memo = $6, last_confirmed_at = now()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query,
		detail.ID, detail.LoginID, detail.PasswordCipher, detail.PINCipher, detail.PatternCipher, detail.Memo); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) IncrementViews(ctx context.Context, id string) error {

	query := `UPDATE account_details SET views = views + 1, last_confirmed_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GroupOwner(ctx context.Context, detailID string) (string, error) {

	query :=
		`SELECT g.user_id
		 FROM account_details d
		 JOIN account_groups g ON g.id = d.group_id
		 WHERE d.id = $1
		 `

	var userID string
	if err := r.db.QueryRowContext(ctx, query, detailID).Scan(&userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("db error: %w", err)
	}

	return userID, nil
}

func (r *PostgresRepository) queryGroups(ctx context.Context, query string, args ...any) ([]*models.AccountGroup, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var groups []*models.AccountGroup
	for rows.Next() {
		g := &models.AccountGroup{}
		if err := rows.Scan(&g.ID, &g.UserID, &g.SNSID, &g.GroupName, &g.AppPackageName,
			&g.WebURL, &g.IconType, &g.IconImageURL, &g.IsFavorite, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return groups, nil
}

func scanGroup(row *sql.Row) (*models.AccountGroup, error) {
	g := &models.AccountGroup{}
	err := row.Scan(&g.ID, &g.UserID, &g.SNSID, &g.GroupName, &g.AppPackageName,
		&g.WebURL, &g.IconType, &g.IconImageURL, &g.IsFavorite, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return g, nil
}
