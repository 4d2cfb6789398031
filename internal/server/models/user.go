package models

import "time"

// User is the owning entity for all credential data. PhoneNumber is the
// primary external identity. IsLocked and CountAuthFailed are mutated only
// through the authentication attempt path.
type User struct {
	ID              string
	UserName        string
	Email           string
	PhoneNumber     string
	PasswordHash    string
	IsActive        bool
	IsLocked        bool
	CountAuthFailed int
	SecretKey       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
