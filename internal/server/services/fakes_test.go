package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/mwodeola/mwodeola-server/internal/common"
	"github.com/mwodeola/mwodeola-server/internal/dbx"
	"github.com/mwodeola/mwodeola-server/internal/server/models"
	accountsrepo "github.com/mwodeola/mwodeola-server/internal/server/repositories/accounts"
	"github.com/mwodeola/mwodeola-server/internal/server/repositories/repomanager"
	tokensrepo "github.com/mwodeola/mwodeola-server/internal/server/repositories/tokens"
	usersrepo "github.com/mwodeola/mwodeola-server/internal/server/repositories/users"
)

// --- in-memory fakes shared by the service tests ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	users  map[string]*models.User // by id
	nextID int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.PhoneNumber == u.PhoneNumber || existing.Email == u.Email {
			return nil, common.ErrDuplicated
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	cp := *u
	f.users[u.ID] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByPhoneNumber(ctx context.Context, phone string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.PhoneNumber == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) UpdateAuthState(ctx context.Context, id string, count int, locked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.CountAuthFailed = count
	u.IsLocked = locked
	return nil
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, id string, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

type fakeTokensRepo struct {
	mu          sync.Mutex
	outstanding []*models.OutstandingToken
	blacklist   map[string]bool
	nextID      int64
}

func newFakeTokensRepo() *fakeTokensRepo {
	return &fakeTokensRepo{blacklist: map[string]bool{}}
}

func (f *fakeTokensRepo) CreateOutstanding(ctx context.Context, userID, jti, token string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.outstanding = append(f.outstanding, &models.OutstandingToken{
		ID: f.nextID, UserID: userID, JTI: jti, Token: token,
		CreatedAt: time.Now(), ExpiresAt: expiresAt,
	})
	return nil
}

func (f *fakeTokensRepo) LatestOutstanding(ctx context.Context, userID string) (*models.OutstandingToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.outstanding) - 1; i >= 0; i-- {
		if f.outstanding[i].UserID == userID {
			cp := *f.outstanding[i]
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTokensRepo) ListOutstanding(ctx context.Context, userID string, limit int) ([]*models.OutstandingToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.OutstandingToken
	for _, t := range f.outstanding {
		if t.UserID == userID && !f.blacklist[t.JTI] {
			cp := *t
			out = append(out, &cp)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeTokensRepo) AddToBlacklist(ctx context.Context, jti string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blacklist[jti] = true
	return nil
}

func (f *fakeTokensRepo) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blacklist[jti], nil
}

func (f *fakeTokensRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keep []*models.OutstandingToken
	for _, t := range f.outstanding {
		if t.ExpiresAt.After(now) {
			keep = append(keep, t)
		} else {
			delete(f.blacklist, t.JTI)
		}
	}
	f.outstanding = keep
	return nil
}

func (f *fakeTokensRepo) countNonBlacklisted(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.outstanding {
		if t.UserID == userID && !f.blacklist[t.JTI] {
			n++
		}
	}
	return n
}

type fakeAccountsRepo struct {
	mu      sync.Mutex
	groups  map[string]*models.AccountGroup
	details map[string]*models.AccountDetail
	nextID  int
}

func newFakeAccountsRepo() *fakeAccountsRepo {
	return &fakeAccountsRepo{
		groups:  map[string]*models.AccountGroup{},
		details: map[string]*models.AccountDetail{},
	}
}

func (f *fakeAccountsRepo) CreateGroup(ctx context.Context, g *models.AccountGroup) (*models.AccountGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.groups {
		if existing.UserID == g.UserID && existing.GroupName == g.GroupName {
			return nil, common.ErrDuplicated
		}
	}
	f.nextID++
	g.ID = fmt.Sprintf("group-%d", f.nextID)
	cp := *g
	f.groups[g.ID] = &cp
	return g, nil
}

func (f *fakeAccountsRepo) GetGroup(ctx context.Context, id string) (*models.AccountGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeAccountsRepo) ListGroups(ctx context.Context, userID string) ([]*models.AccountGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AccountGroup
	for _, g := range f.groups {
		if g.UserID == userID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAccountsRepo) SearchGroups(ctx context.Context, userID, sub string) ([]*models.AccountGroup, error) {
	all, _ := f.ListGroups(ctx, userID)
	var out []*models.AccountGroup
	for _, g := range all {
		if containsFold(g.GroupName, sub) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeAccountsRepo) DeleteGroup(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.groups, id)
	for did, d := range f.details {
		if d.GroupID == id {
			delete(f.details, did)
		}
	}
	return nil
}

func (f *fakeAccountsRepo) CreateDetail(ctx context.Context, d *models.AccountDetail) (*models.AccountDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	d.ID = fmt.Sprintf("detail-%d", f.nextID)
	cp := *d
	f.details[d.ID] = &cp
	return d, nil
}

func (f *fakeAccountsRepo) GetDetail(ctx context.Context, id string) (*models.AccountDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeAccountsRepo) UpdateDetail(ctx context.Context, d *models.AccountDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.details[d.ID]
	if !ok {
		return common.ErrorNotFound
	}
	existing.LoginID = d.LoginID
	existing.PasswordCipher = d.PasswordCipher
	existing.PINCipher = d.PINCipher
	existing.PatternCipher = d.PatternCipher
	existing.Memo = d.Memo
	return nil
}

func (f *fakeAccountsRepo) IncrementViews(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.details[id]; ok {
		d.Views++
	}
	return nil
}

func (f *fakeAccountsRepo) GroupOwner(ctx context.Context, detailID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.details[detailID]
	if !ok {
		return "", common.ErrorNotFound
	}
	g, ok := f.groups[d.GroupID]
	if !ok {
		return "", common.ErrorNotFound
	}
	return g.UserID, nil
}

func containsFold(s, sub string) bool {
	if sub == "" {
		return true
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		match := true
		for j := 0; j < len(sub); j++ {
			a, b := s[i+j], sub[j]
			if 'A' <= a && a <= 'Z' {
				a += 'a' - 'A'
			}
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	t *fakeTokensRepo
	a *fakeAccountsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		u: newFakeUsersRepo(),
		t: newFakeTokensRepo(),
		a: newFakeAccountsRepo(),
	}
}

var _ repomanager.RepositoryManager = (*fakeRepoManager)(nil)

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) Tokens(db dbx.DBTX) tokensrepo.Repository     { return m.t }
func (m *fakeRepoManager) Accounts(db dbx.DBTX) accountsrepo.Repository { return m.a }
