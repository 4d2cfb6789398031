// Package tokens declares the server-side repository contract for the
// outstanding-token and blacklist bookkeeping behind refresh tokens.
package tokens

import (
	"context"
	"time"

	"github.com/mwodeola/mwodeola-server/internal/server/models"
)

// Repository defines operations for recording issued refresh tokens and
// marking them blacklisted by jti.
type Repository interface {
	// CreateOutstanding records a freshly minted refresh token.
	CreateOutstanding(ctx context.Context, userID, jti, token string, expiresAt time.Time) error

	// LatestOutstanding returns the most recently issued token for userID,
	// blacklisted or not. Returns common.ErrorNotFound when there is none.
	LatestOutstanding(ctx context.Context, userID string) (*models.OutstandingToken, error)

	// ListOutstanding returns up to limit outstanding tokens for userID
	// whose jti is not yet blacklisted, oldest first.
	ListOutstanding(ctx context.Context, userID string, limit int) ([]*models.OutstandingToken, error)

	// AddToBlacklist marks a jti permanently invalid. Blacklisting a jti
	// twice is not an error.
	AddToBlacklist(ctx context.Context, jti string) error

	// IsBlacklisted reports whether the jti appears in the blacklist.
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// DeleteExpired removes outstanding records whose expiry has passed,
	// together with their blacklist entries.
	DeleteExpired(ctx context.Context, now time.Time) error
}
