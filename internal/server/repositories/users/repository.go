package users

import (
	"context"

	"github.com/mwodeola/mwodeola-server/internal/server/models"
)

// Repository defines persistence operations on user records. The auth
// state (failed-attempt counter and lock flag) is written only through
// UpdateAuthState so every password-verification path shares one counter.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateAuthState(ctx context.Context, id string, countAuthFailed int, isLocked bool) error
	UpdatePasswordHash(ctx context.Context, id string, passwordHash string) error
	Delete(ctx context.Context, id string) error
}
