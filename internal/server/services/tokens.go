// Package services contains server-side business logic: the token
// lifecycle, the authentication flow with brute-force lockout, and the
// encrypted account storage.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mwodeola/mwodeola-server/internal/common"
	"github.com/mwodeola/mwodeola-server/internal/dbx"
	"github.com/mwodeola/mwodeola-server/internal/server/auth"
	"github.com/mwodeola/mwodeola-server/internal/server/config"
	"github.com/mwodeola/mwodeola-server/internal/server/metrics"
	"github.com/mwodeola/mwodeola-server/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// blacklistBatchSize bounds each ListOutstanding page during a blacklist
// sweep so a user with many sessions cannot pin a worker.
const blacklistBatchSize = 100

// TokenService issues, verifies, rotates and blacklists session tokens.
// Issuance keeps at most one non-blacklisted outstanding refresh token per
// user by blacklisting the previous one before minting (blacklist-then-mint).
// Concurrent issuance for the same user can briefly violate that; accepted.
type TokenService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewTokenService constructs a TokenService using repositories and server config.
func NewTokenService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *TokenService {
	return &TokenService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

// Issue blacklists the user's latest outstanding refresh token (idempotent,
// absence is fine) and mints a fresh refresh/access pair. The refresh token
// is recorded server-side as outstanding.
func (s *TokenService) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	repo := s.repomanager.Tokens(s.db)

	latest, err := repo.LatestOutstanding(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching outstanding token: %w", err)
	}
	if err == nil {
		blacklisted, err := repo.IsBlacklisted(ctx, latest.JTI)
		if err != nil {
			return nil, fmt.Errorf("error checking blacklist: %w", err)
		}
		if !blacklisted {
			if err := repo.AddToBlacklist(ctx, latest.JTI); err != nil {
				return nil, fmt.Errorf("error blacklisting previous token: %w", err)
			}
			metrics.TokensBlacklisted.Inc()
		}
	}

	return s.mintPair(ctx, userID, s.db)
}

// Verify decodes and validates the token and returns its claims. Refresh
// tokens are additionally checked against the blacklist by jti.
func (s *TokenService) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	if claims.TokenType == auth.TokenTypeRefresh {
		blacklisted, err := s.repomanager.Tokens(s.db).IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("error checking blacklist: %w", err)
		}
		if blacklisted {
			return nil, common.ErrTokenBlacklisted
		}
	}

	return claims, nil
}

// Refresh validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. The presented token is blacklisted as part of
// the rotation.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.Verify(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		return nil, common.ErrInvalidToken
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.Tokens(tx)
		if err := repoTx.AddToBlacklist(ctx, claims.ID); err != nil {
			return fmt.Errorf("error blacklisting refresh token: %w", err)
		}
		metrics.TokensBlacklisted.Inc()
		var mintErr error
		pair, mintErr = s.mintPair(ctx, claims.UserID, tx)
		return mintErr
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Blacklist marks the presented refresh token's jti permanently invalid.
// It is idempotent, and a malformed token is a silent no-op.
func (s *TokenService) Blacklist(ctx context.Context, refreshToken string) error {
	claims, err := auth.ParseToken(refreshToken, s.jwtSecret)
	if err != nil {
		// nothing to blacklist
		return nil
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		return nil
	}

	if err := s.repomanager.Tokens(s.db).AddToBlacklist(ctx, claims.ID); err != nil {
		return fmt.Errorf("error blacklisting token: %w", err)
	}
	metrics.TokensBlacklisted.Inc()
	return nil
}

// BlacklistAll blacklists every outstanding, not-yet-blacklisted token for
// the user, in bounded batches. Used by the lockout escalation path; a
// token issued mid-sweep may be missed, which is acceptable for a
// defense-in-depth measure.
func (s *TokenService) BlacklistAll(ctx context.Context, userID string) error {
	repo := s.repomanager.Tokens(s.db)

	for {
		batch, err := repo.ListOutstanding(ctx, userID, blacklistBatchSize)
		if err != nil {
			return fmt.Errorf("error listing outstanding tokens: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}
		for _, token := range batch {
			if err := repo.AddToBlacklist(ctx, token.JTI); err != nil {
				return fmt.Errorf("error blacklisting token: %w", err)
			}
			metrics.TokensBlacklisted.Inc()
		}
		if len(batch) < blacklistBatchSize {
			return nil
		}
	}
}

// DeleteExpired prunes outstanding and blacklist records whose tokens have
// expired anyway.
func (s *TokenService) DeleteExpired(ctx context.Context) error {
	return s.repomanager.Tokens(s.db).DeleteExpired(ctx, time.Now())
}

func (s *TokenService) mintPair(ctx context.Context, userID string, db dbx.DBTX) (*TokenPair, error) {
	jti := uuid.NewString()
	refresh, err := auth.GenerateToken(userID, auth.TokenTypeRefresh, jti, s.jwtSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	repo := s.repomanager.Tokens(db)
	expiresAt := time.Now().Add(s.refreshTokenValidityDuration)
	if err := repo.CreateOutstanding(ctx, userID, jti, refresh, expiresAt); err != nil {
		return nil, common.ErrorInternal
	}

	access, err := auth.GenerateToken(userID, auth.TokenTypeAccess, uuid.NewString(), s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	metrics.TokensIssued.Inc()
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
