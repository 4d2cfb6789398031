package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mwodeola/mwodeola-server/internal/common"
	"github.com/mwodeola/mwodeola-server/internal/server/auth"
	"github.com/mwodeola/mwodeola-server/internal/server/config"
	"github.com/mwodeola/mwodeola-server/internal/server/metrics"
	"github.com/mwodeola/mwodeola-server/internal/server/models"
	"github.com/mwodeola/mwodeola-server/internal/server/repositories/repomanager"
	"github.com/mwodeola/mwodeola-server/internal/server/tasks"
	"github.com/mwodeola/mwodeola-server/internal/shared"
)

// AuthService composes the lockout tracker and the token service for the
// public authentication use cases: sign-up/in/out, silent re-entry,
// re-authentication for sensitive operations, password change, withdrawal.
//
// Every password verification goes through checkAttempt, so the
// failed-attempt counter accumulates consistently across sign-in, password
// change, re-auth and withdrawal.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
	dispatcher  tasks.Dispatcher
	authLimit   int
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService, dispatcher tasks.Dispatcher, cfg *config.Config) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		dispatcher:  dispatcher,
		authLimit:   cfg.AuthFailedLimit,
	}
}

// SignUp creates a new user and signs them in.
func (s *AuthService) SignUp(ctx context.Context, userName, email, phoneNumber, password string) (*models.User, *TokenPair, error) {
	hash, err := auth.HashPassword(password, auth.DefaultArgon2Params())
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	secretKey, err := shared.MakeRandHexString(16)
	if err != nil {
		return nil, nil, common.ErrorInternal
	}

	user := &models.User{
		UserName:     userName,
		Email:        email,
		PhoneNumber:  phoneNumber,
		PasswordHash: hash,
		IsActive:     true,
		SecretKey:    secretKey,
	}

	user, err = s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrDuplicated) {
			return nil, nil, common.ErrDuplicated
		}
		return nil, nil, fmt.Errorf("error creating user: %w", err)
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// PhoneNumberAvailable reports whether no user is registered under the
// phone number. Used by the sign-up pre-checks.
func (s *AuthService) PhoneNumberAvailable(ctx context.Context, phoneNumber string) (bool, error) {
	_, err := s.repomanager.Users(s.db).GetByPhoneNumber(ctx, phoneNumber)
	if errors.Is(err, common.ErrorNotFound) {
		return true, nil
	}
	if err != nil {
		return false, common.ErrorInternal
	}
	return false, nil
}

// EmailAvailable reports whether no user is registered under the email.
func (s *AuthService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	_, err := s.repomanager.Users(s.db).GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		return true, nil
	}
	if err != nil {
		return false, common.ErrorInternal
	}
	return false, nil
}

// SignIn authenticates by phone number and password and mints a token pair.
// Issuing blacklists the previous session's refresh token.
func (s *AuthService) SignIn(ctx context.Context, phoneNumber, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.AuthAttempts.WithLabelValues(metrics.OutcomeNotFound).Inc()
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrorInternal
	}

	if err := s.checkAttempt(ctx, user, password); err != nil {
		return nil, err
	}

	return s.tokens.Issue(ctx, user.ID)
}

// SignInAuto performs the silent sign-in on app relaunch: the presented
// refresh token is validated, force-rotated (blacklist plus fresh pair),
// and the user must still be active and unlocked.
func (s *AuthService) SignInAuto(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		return nil, common.ErrInvalidToken
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrorInternal
	}
	if user.IsLocked {
		return nil, common.ErrAccountLocked
	}
	if !user.IsActive {
		return nil, common.ErrAccountInactive
	}

	if err := s.tokens.Blacklist(ctx, refreshToken); err != nil {
		return nil, err
	}
	return s.tokens.Issue(ctx, user.ID)
}

// SignOut blacklists the presented refresh token.
func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	return s.tokens.Blacklist(ctx, refreshToken)
}

// Reauthenticate re-verifies the password of an already signed-in user for
// a sensitive operation. It shares the lockout counter with sign-in and
// does not issue tokens.
func (s *AuthService) Reauthenticate(ctx context.Context, userID, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrorInternal
	}

	if err := s.checkAttempt(ctx, user, password); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangePassword re-authenticates with the old password and stores a new
// hash. Outstanding sessions deliberately stay valid; see DESIGN.md.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.Reauthenticate(ctx, userID, oldPassword)
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword, auth.DefaultArgon2Params())
	if err != nil {
		return common.ErrorInternal
	}

	return s.repomanager.Users(s.db).UpdatePasswordHash(ctx, user.ID, hash)
}

// Withdraw re-authenticates, terminates every session and deletes the user.
// Owned account data is removed by cascade.
func (s *AuthService) Withdraw(ctx context.Context, userID, password string) error {
	user, err := s.Reauthenticate(ctx, userID, password)
	if err != nil {
		return err
	}

	if err := s.tokens.BlacklistAll(ctx, user.ID); err != nil {
		return err
	}
	return s.repomanager.Users(s.db).Delete(ctx, user.ID)
}

// Lock is the explicit self-lock: the presented session is blacklisted and
// the account is marked locked. Only an external unlock flow clears it.
func (s *AuthService) Lock(ctx context.Context, userID, refreshToken string) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return common.ErrorInternal
	}

	if err := s.tokens.Blacklist(ctx, refreshToken); err != nil {
		return err
	}
	metrics.Lockouts.Inc()
	return s.repomanager.Users(s.db).UpdateAuthState(ctx, user.ID, user.CountAuthFailed, true)
}

// FailedCount returns the user's current failed-attempt counter and the
// configured limit.
func (s *AuthService) FailedCount(ctx context.Context, userID string) (count, limit int, err error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, 0, common.ErrUserNotFound
		}
		return 0, 0, common.ErrorInternal
	}
	return user.CountAuthFailed, s.authLimit, nil
}

// SetFailedCount syncs the counter from the client's local attempt count
// (the app verifies the PIN/pattern offline). Reaching the limit locks the
// account and blacklists the presented session.
func (s *AuthService) SetFailedCount(ctx context.Context, userID string, count int, refreshToken string) error {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUserNotFound
		}
		return common.ErrorInternal
	}

	if count >= s.authLimit {
		if err := s.repomanager.Users(s.db).UpdateAuthState(ctx, user.ID, count, true); err != nil {
			return err
		}
		metrics.Lockouts.Inc()
		return s.tokens.Blacklist(ctx, refreshToken)
	}

	return s.repomanager.Users(s.db).UpdateAuthState(ctx, user.ID, count, user.IsLocked)
}

// checkAttempt is the lockout state machine. The locked check precedes the
// password check, a success resets the counter and never clears the lock
// flag, and a failure that reaches the limit locks the account and
// dispatches the session sweep.
//
// The counter update is read-modify-write without a row lock; concurrent
// failures can under-count. Acceptable for an abuse deterrent.
func (s *AuthService) checkAttempt(ctx context.Context, user *models.User, password string) error {
	if user.IsLocked {
		metrics.AuthAttempts.WithLabelValues(metrics.OutcomeLocked).Inc()
		return common.ErrAccountLocked
	}
	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues(metrics.OutcomeInactive).Inc()
		return common.ErrAccountInactive
	}

	ok, err := auth.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return common.ErrorInternal
	}

	repo := s.repomanager.Users(s.db)

	if !ok {
		count := user.CountAuthFailed + 1

		if count < s.authLimit {
			if err := repo.UpdateAuthState(ctx, user.ID, count, user.IsLocked); err != nil {
				return common.ErrorInternal
			}
			user.CountAuthFailed = count
			metrics.AuthAttempts.WithLabelValues(metrics.OutcomeFailed).Inc()
			return &common.AuthFailedError{Count: count, Limit: s.authLimit}
		}

		if err := repo.UpdateAuthState(ctx, user.ID, count, true); err != nil {
			return common.ErrorInternal
		}
		user.CountAuthFailed = count
		user.IsLocked = true
		metrics.AuthAttempts.WithLabelValues(metrics.OutcomeExceeded).Inc()
		metrics.Lockouts.Inc()

		// Best-effort cleanup: the lock above is the security decision, the
		// sweep just terminates already-issued sessions.
		_ = s.dispatcher.DispatchBlacklistAll(ctx, user.ID)

		return common.ErrAuthExceeded
	}

	if user.CountAuthFailed != 0 {
		if err := repo.UpdateAuthState(ctx, user.ID, 0, user.IsLocked); err != nil {
			return common.ErrorInternal
		}
		user.CountAuthFailed = 0
	}
	metrics.AuthAttempts.WithLabelValues(metrics.OutcomeSuccess).Inc()
	return nil
}
