package accounts

import (
	"context"

	"github.com/mwodeola/mwodeola-server/internal/server/models"
)

// Repository defines persistence operations on account groups and details.
// Secret fields in details are stored already encrypted; the repository
// never sees plaintext.
type Repository interface {
	CreateGroup(ctx context.Context, group *models.AccountGroup) (*models.AccountGroup, error)
	GetGroup(ctx context.Context, id string) (*models.AccountGroup, error)
	ListGroups(ctx context.Context, userID string) ([]*models.AccountGroup, error)
	SearchGroups(ctx context.Context, userID, nameSubstring string) ([]*models.AccountGroup, error)
	DeleteGroup(ctx context.Context, id string) error

	CreateDetail(ctx context.Context, detail *models.AccountDetail) (*models.AccountDetail, error)
	GetDetail(ctx context.Context, id string) (*models.AccountDetail, error)
	UpdateDetail(ctx context.Context, detail *models.AccountDetail) error
	IncrementViews(ctx context.Context, id string) error

	// GroupOwner returns the user id owning the group the detail belongs to.
	GroupOwner(ctx context.Context, detailID string) (string, error)
}
