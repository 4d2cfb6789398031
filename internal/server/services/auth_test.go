package services

import (
	"context"
	"errors"
	"testing"

	"github.com/mwodeola/mwodeola-server/internal/common"
	"github.com/mwodeola/mwodeola-server/internal/server/auth"
	"github.com/mwodeola/mwodeola-server/internal/server/models"
	"github.com/mwodeola/mwodeola-server/internal/server/tasks"
)

const (
	testPhone    = "+82-10-1234-5678"
	testPassword = "correct-password"
)

func newAuthService(t *testing.T, rm *fakeRepoManager) (*AuthService, *TokenService) {
	t.Helper()
	cfg := testConfig()
	ts := NewTokenService(nil, rm, cfg)
	as := NewAuthService(nil, rm, ts, tasks.NewSyncDispatcher(ts), cfg)
	return as, ts
}

func seedUser(t *testing.T, rm *fakeRepoManager) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(testPassword, auth.DefaultArgon2Params())
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	user, err := rm.u.Create(context.Background(), &models.User{
		UserName:     "tester",
		Email:        "tester@example.com",
		PhoneNumber:  testPhone,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("seed user error: %v", err)
	}
	return user
}

func TestSignIn_Success(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newAuthService(t, rm)
	seedUser(t, rm)

	pair, err := s.SignIn(context.Background(), testPhone, testPassword)
	if err != nil {
		t.Fatalf("SignIn error: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected non-empty token pair")
	}
}

func TestSignIn_UnknownPhoneNumber(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newAuthService(t, rm)
	seedUser(t, rm)

	_, err := s.SignIn(context.Background(), "+82-10-0000-0000", testPassword)
	if !errors.Is(err, common.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	// the existing user's counter is untouched
	u, _ := rm.u.GetByPhoneNumber(context.Background(), testPhone)
	if u.CountAuthFailed != 0 {
		t.Fatalf("unknown phone must not increment any counter, got %d", u.CountAuthFailed)
	}
}

func TestSignIn_InactiveUser(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newAuthService(t, rm)
	user := seedUser(t, rm)
	rm.u.users[user.ID].IsActive = false

	_, err := s.SignIn(context.Background(), testPhone, testPassword)
	if !errors.Is(err, common.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

// Lockout monotonicity and the full scenario from the design: limit 5,
// four wrong attempts leave the user unlocked at count 4, the fifth locks
// and terminates sessions, and the correct password is rejected afterwards.
func TestSignIn_LockoutScenario(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	// an existing session that should die when the account locks
	session, err := ts.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	for i := 1; i <= 4; i++ {
		_, err := s.SignIn(ctx, testPhone, "wrong-password")
		var failed *common.AuthFailedError
		if !errors.As(err, &failed) {
			t.Fatalf("attempt %d: expected AuthFailedError, got %v", i, err)
		}
		if failed.Count != i || failed.Limit != 5 {
			t.Fatalf("attempt %d: got count=%d limit=%d", i, failed.Count, failed.Limit)
		}
	}

	u, _ := rm.u.GetByID(ctx, user.ID)
	if u.IsLocked || u.CountAuthFailed != 4 {
		t.Fatalf("after 4 attempts: locked=%v count=%d, want unlocked count=4", u.IsLocked, u.CountAuthFailed)
	}

	// fifth wrong attempt locks the account
	_, err = s.SignIn(ctx, testPhone, "wrong-password")
	if !errors.Is(err, common.ErrAuthExceeded) {
		t.Fatalf("attempt 5: expected ErrAuthExceeded, got %v", err)
	}

	u, _ = rm.u.GetByID(ctx, user.ID)
	if !u.IsLocked || u.CountAuthFailed != 5 {
		t.Fatalf("after 5 attempts: locked=%v count=%d, want locked count=5", u.IsLocked, u.CountAuthFailed)
	}

	// lock cascades to sessions
	if _, err := ts.Verify(ctx, session.RefreshToken); !errors.Is(err, common.ErrTokenBlacklisted) {
		t.Fatalf("expected outstanding session blacklisted on lock, got %v", err)
	}

	// even the correct password is now rejected, without touching the counter
	_, err = s.SignIn(ctx, testPhone, testPassword)
	if !errors.Is(err, common.ErrAccountLocked) {
		t.Fatalf("attempt 6: expected ErrAccountLocked, got %v", err)
	}
	u, _ = rm.u.GetByID(ctx, user.ID)
	if u.CountAuthFailed != 5 {
		t.Fatalf("locked attempt must not change counter, got %d", u.CountAuthFailed)
	}
}

func TestSignIn_CounterResetOnSuccess(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = s.SignIn(ctx, testPhone, "wrong-password")
	}
	u, _ := rm.u.GetByID(ctx, user.ID)
	if u.CountAuthFailed != 3 {
		t.Fatalf("expected count 3, got %d", u.CountAuthFailed)
	}

	if _, err := s.SignIn(ctx, testPhone, testPassword); err != nil {
		t.Fatalf("SignIn error: %v", err)
	}

	u, _ = rm.u.GetByID(ctx, user.ID)
	if u.CountAuthFailed != 0 {
		t.Fatalf("expected counter reset to 0, got %d", u.CountAuthFailed)
	}
	if u.IsLocked {
		t.Fatalf("success must not change the lock flag")
	}
}

func TestReauthenticate_SharesLockoutCounter(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	// failures spread across sign-in and re-auth accumulate in one counter
	_, _ = s.SignIn(ctx, testPhone, "wrong-password")
	_, err := s.Reauthenticate(ctx, user.ID, "wrong-password")
	var failed *common.AuthFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected AuthFailedError, got %v", err)
	}
	if failed.Count != 2 {
		t.Fatalf("expected shared counter at 2, got %d", failed.Count)
	}
}

func TestSignUp_IssuesTokens(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	ctx := context.Background()

	user, pair, err := s.SignUp(ctx, "newbie", "n@example.com", "+82-10-9999-0000", "pw123456")
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}
	if user.ID == "" || user.SecretKey == "" {
		t.Fatalf("expected persisted user with secret key, got %+v", user)
	}
	if _, err := ts.Verify(ctx, pair.RefreshToken); err != nil {
		t.Fatalf("expected fresh refresh token to verify, got %v", err)
	}
}

func TestSignUp_DuplicatePhone(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newAuthService(t, rm)
	seedUser(t, rm)

	_, _, err := s.SignUp(context.Background(), "other", "other@example.com", testPhone, "pw123456")
	if !errors.Is(err, common.ErrDuplicated) {
		t.Fatalf("expected ErrDuplicated, got %v", err)
	}
}

func TestSignInAuto_ForcedRotation(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	session, err := ts.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	pair, err := s.SignInAuto(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("SignInAuto error: %v", err)
	}
	if pair.RefreshToken == session.RefreshToken {
		t.Fatalf("expected a rotated refresh token")
	}
	if _, err := ts.Verify(ctx, session.RefreshToken); !errors.Is(err, common.ErrTokenBlacklisted) {
		t.Fatalf("expected presented token blacklisted, got %v", err)
	}
}

func TestSignInAuto_LockedUser(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	session, err := ts.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	rm.u.users[user.ID].IsLocked = true

	if _, err := s.SignInAuto(ctx, session.RefreshToken); !errors.Is(err, common.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestSignInAuto_RejectsAccessToken(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	session, err := ts.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := s.SignInAuto(ctx, session.AccessToken); !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for access token, got %v", err)
	}
}

func TestSignOut_BlacklistsToken(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	session, err := ts.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if err := s.SignOut(ctx, session.RefreshToken); err != nil {
		t.Fatalf("SignOut error: %v", err)
	}
	if _, err := ts.Verify(ctx, session.RefreshToken); !errors.Is(err, common.ErrTokenBlacklisted) {
		t.Fatalf("expected blacklisted token after sign-out, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	session, err := ts.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if err := s.ChangePassword(ctx, user.ID, testPassword, "brand-new-pw"); err != nil {
		t.Fatalf("ChangePassword error: %v", err)
	}

	// new password signs in, old one fails
	if _, err := s.SignIn(ctx, testPhone, "brand-new-pw"); err != nil {
		t.Fatalf("SignIn with new password error: %v", err)
	}
	var failed *common.AuthFailedError
	if _, err := s.SignIn(ctx, testPhone, testPassword); !errors.As(err, &failed) {
		t.Fatalf("expected AuthFailedError with old password, got %v", err)
	}

	// existing sessions stay valid by design
	if _, err := ts.Verify(ctx, session.RefreshToken); err != nil {
		t.Fatalf("expected session to survive password change, got %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	rm := newFakeRepoManager()
	s, _ := newAuthService(t, rm)
	user := seedUser(t, rm)

	err := s.ChangePassword(context.Background(), user.ID, "wrong", "whatever")
	var failed *common.AuthFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected AuthFailedError, got %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	session, err := ts.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if err := s.Withdraw(ctx, user.ID, testPassword); err != nil {
		t.Fatalf("Withdraw error: %v", err)
	}

	if _, err := rm.u.GetByID(ctx, user.ID); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected user deleted, got %v", err)
	}
	if _, err := ts.Verify(ctx, session.RefreshToken); !errors.Is(err, common.ErrTokenBlacklisted) {
		t.Fatalf("expected sessions terminated on withdrawal, got %v", err)
	}
}

func TestLock_BlacklistsPresentedSession(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	session, err := ts.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if err := s.Lock(ctx, user.ID, session.RefreshToken); err != nil {
		t.Fatalf("Lock error: %v", err)
	}

	u, _ := rm.u.GetByID(ctx, user.ID)
	if !u.IsLocked {
		t.Fatalf("expected user locked")
	}
	if _, err := ts.Verify(ctx, session.RefreshToken); !errors.Is(err, common.ErrTokenBlacklisted) {
		t.Fatalf("expected presented session blacklisted, got %v", err)
	}
}

func TestSetFailedCount_ReachingLimitLocks(t *testing.T) {
	rm := newFakeRepoManager()
	s, ts := newAuthService(t, rm)
	user := seedUser(t, rm)
	ctx := context.Background()

	session, err := ts.Issue(ctx, user.ID)
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if err := s.SetFailedCount(ctx, user.ID, 2, session.RefreshToken); err != nil {
		t.Fatalf("SetFailedCount error: %v", err)
	}
	count, limit, err := s.FailedCount(ctx, user.ID)
	if err != nil || count != 2 || limit != 5 {
		t.Fatalf("FailedCount = (%d, %d, %v), want (2, 5, nil)", count, limit, err)
	}

	if err := s.SetFailedCount(ctx, user.ID, 5, session.RefreshToken); err != nil {
		t.Fatalf("SetFailedCount error: %v", err)
	}
	u, _ := rm.u.GetByID(ctx, user.ID)
	if !u.IsLocked {
		t.Fatalf("expected lock at limit")
	}
	if _, err := ts.Verify(ctx, session.RefreshToken); !errors.Is(err, common.ErrTokenBlacklisted) {
		t.Fatalf("expected presented session blacklisted at limit, got %v", err)
	}
}
