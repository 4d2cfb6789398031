// Package common defines shared sentinel errors and structured error types
// used across the server layers. Callers should use errors.Is / errors.As
// to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Authentication errors.
	ErrUserNotFound    = errors.New("user not found")
	ErrAccountInactive = errors.New("user is inactive")
	ErrAccountLocked   = errors.New("user is locked")
	ErrAuthExceeded    = errors.New("exceeded number of authentications")

	// Token lifecycle errors.
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenBlacklisted = errors.New("token is blacklisted")

	// Data-access errors.
	ErrDuplicated = errors.New("duplicated field")
	ErrNotOwner   = errors.New("not the owner of the data")

	// Cipher errors.
	ErrDecryption = errors.New("decryption error")
)

// AuthFailedError is returned on a failed password check that has not yet
// reached the lockout limit. Count and Limit are surfaced to the client so
// it can show remaining attempts.
type AuthFailedError struct {
	Count int
	Limit int
}

func (e *AuthFailedError) Error() string {
	return fmt.Sprintf("authentication failed (%d/%d)", e.Count, e.Limit)
}

// FieldError reports malformed or missing request input.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field error: %s: %s", e.Field, e.Reason)
}
