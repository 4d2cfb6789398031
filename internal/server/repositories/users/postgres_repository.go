package users

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

const userColumns = `id, user_name, email, phone_number, password_hash, is_active, is_locked, count_auth_failed, secret_key, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (user_name, email, phone_number, password_hash, secret_key)
         VALUES ($1, $2, $3, $4, $5)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.UserName, user.Email, user.PhoneNumber, user.PasswordHash, user.SecretKey).Scan(&user.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.ErrDuplicated
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, phoneNumber))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) UpdateAuthState(ctx context.Context, id string, countAuthFailed int, isLocked bool) error {

	query :=
		`UPDATE users SET count_auth_failed = $2, is_locked = $3, updated_at = now()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, countAuthFailed, isLocked); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error {

	query :=
		`UPDATE users SET password_hash = $2, updated_at = now()
		 WHERE id = $1
		 `

	if _, err := r.db.ExecContext(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {

	query := `DELETE FROM users WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.UserName, &user.Email, &user.PhoneNumber, &user.PasswordHash,
		&user.IsActive, &user.IsLocked, &user.CountAuthFailed, &user.SecretKey, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// isUniqueViolation matches the Postgres unique_violation SQLSTATE (23505)
// reported through the pgx stdlib driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
