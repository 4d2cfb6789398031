package models

import "time"

// OutstandingToken is a server-side record of an issued refresh token.
// It stays until it is blacklisted or expires naturally.
type OutstandingToken struct {
	ID        int64
	UserID    string
	JTI       string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// BlacklistedToken marks a jti permanently invalid ahead of its expiry.
type BlacklistedToken struct {
	ID            int64
	JTI           string
	BlacklistedAt time.Time
}
