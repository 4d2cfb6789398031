package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mwodeola/mwodeola-server/internal/common"
	"github.com/mwodeola/mwodeola-server/internal/cryptox"
	"github.com/mwodeola/mwodeola-server/internal/dbx"
	"github.com/mwodeola/mwodeola-server/internal/server/models"
	"github.com/mwodeola/mwodeola-server/internal/server/repositories/repomanager"
)

// DetailInput carries the plaintext credential fields of an account detail.
// PIN and Pattern are optional; nil means the user never set one.
type DetailInput struct {
	LoginID  string
	Password string
	PIN      *string
	Pattern  *string
	Memo     string
}

// DetailOutput is an account detail with its secrets decrypted.
type DetailOutput struct {
	Detail   *models.AccountDetail
	Password string
	PIN      *string
	Pattern  *string
}

// AccountService stores and retrieves credential data. Secrets are
// encrypted with the process-wide cipher before they reach the repository
// and decrypted on the way out; the database only ever sees ciphertext.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      *cryptox.Cipher
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, cipher *cryptox.Cipher) *AccountService {
	return &AccountService{db: db, repomanager: m, cipher: cipher}
}

// CreateGroup creates an account group together with its first detail.
// Group name (and SNS link, when present) must be unique per user.
func (s *AccountService) CreateGroup(ctx context.Context, group *models.AccountGroup, input *DetailInput) (*models.AccountGroup, *models.AccountDetail, error) {
	detail := &models.AccountDetail{}
	if err := s.encryptInto(detail, input); err != nil {
		return nil, nil, err
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Accounts(tx)
		g, err := repoTx.CreateGroup(ctx, group)
		if err != nil {
			return err
		}
		detail.GroupID = g.ID
		_, err = repoTx.CreateDetail(ctx, detail)
		return err
	}); err != nil {
		if errors.Is(err, common.ErrDuplicated) {
			return nil, nil, common.ErrDuplicated
		}
		return nil, nil, fmt.Errorf("error creating account group: %w", err)
	}

	return group, detail, nil
}

// AddDetail adds another credential to an existing group owned by userID.
func (s *AccountService) AddDetail(ctx context.Context, userID, groupID string, input *DetailInput) (*models.AccountDetail, error) {
	repo := s.repomanager.Accounts(s.db)

	group, err := repo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if group.UserID != userID {
		return nil, common.ErrNotOwner
	}

	detail := &models.AccountDetail{GroupID: groupID}
	if err := s.encryptInto(detail, input); err != nil {
		return nil, err
	}

	return repo.CreateDetail(ctx, detail)
}

// GetDetail returns a decrypted account detail after verifying ownership,
// and bumps the view counter.
func (s *AccountService) GetDetail(ctx context.Context, userID, detailID string) (*DetailOutput, error) {
	repo := s.repomanager.Accounts(s.db)

	owner, err := repo.GroupOwner(ctx, detailID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, common.ErrNotOwner
	}

	detail, err := repo.GetDetail(ctx, detailID)
	if err != nil {
		return nil, err
	}

	out := &DetailOutput{Detail: detail}

	password, err := s.cipher.Decrypt(&detail.PasswordCipher)
	if err != nil {
		return nil, err
	}
	out.Password = *password

	if out.PIN, err = s.cipher.Decrypt(detail.PINCipher); err != nil {
		return nil, err
	}
	if out.Pattern, err = s.cipher.Decrypt(detail.PatternCipher); err != nil {
		return nil, err
	}

	if err := repo.IncrementViews(ctx, detailID); err != nil {
		return nil, err
	}
	detail.Views++

	return out, nil
}

// UpdateDetail re-encrypts and stores the given credential fields.
func (s *AccountService) UpdateDetail(ctx context.Context, userID, detailID string, input *DetailInput) error {
	repo := s.repomanager.Accounts(s.db)

	owner, err := repo.GroupOwner(ctx, detailID)
	if err != nil {
		return err
	}
	if owner != userID {
		return common.ErrNotOwner
	}

	detail := &models.AccountDetail{ID: detailID}
	if err := s.encryptInto(detail, input); err != nil {
		return err
	}

	return repo.UpdateDetail(ctx, detail)
}

// ListGroups returns all account groups owned by userID.
func (s *AccountService) ListGroups(ctx context.Context, userID string) ([]*models.AccountGroup, error) {
	return s.repomanager.Accounts(s.db).ListGroups(ctx, userID)
}

// SearchGroups returns the user's groups whose name contains the substring,
// case-insensitively.
func (s *AccountService) SearchGroups(ctx context.Context, userID, nameSubstring string) ([]*models.AccountGroup, error) {
	return s.repomanager.Accounts(s.db).SearchGroups(ctx, userID, nameSubstring)
}

// DeleteGroup removes a group and, by cascade, its details.
func (s *AccountService) DeleteGroup(ctx context.Context, userID, groupID string) error {
	repo := s.repomanager.Accounts(s.db)

	group, err := repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group.UserID != userID {
		return common.ErrNotOwner
	}

	return repo.DeleteGroup(ctx, groupID)
}

func (s *AccountService) encryptInto(detail *models.AccountDetail, input *DetailInput) error {
	passwordCipher, err := s.cipher.Encrypt(&input.Password)
	if err != nil {
		return common.ErrorInternal
	}
	detail.LoginID = input.LoginID
	detail.PasswordCipher = *passwordCipher
	detail.Memo = input.Memo

	if detail.PINCipher, err = s.cipher.Encrypt(input.PIN); err != nil {
		return common.ErrorInternal
	}
	if detail.PatternCipher, err = s.cipher.Encrypt(input.Pattern); err != nil {
		return common.ErrorInternal
	}
	return nil
}
