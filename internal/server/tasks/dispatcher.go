// Package tasks handles background work triggered by the authentication
// flow. The only task today is the mass token blacklist that follows an
// account lockout: the lock flag itself is set synchronously on the request
// path, while the blacklist sweep is defense in depth and may run later.
package tasks

import "context"

// BlacklistAller is the part of the token service the workers need.
type BlacklistAller interface {
	BlacklistAll(ctx context.Context, userID string) error
}

// Dispatcher hands lockout cleanup work to whoever executes it.
type Dispatcher interface {
	DispatchBlacklistAll(ctx context.Context, userID string) error
}

// SyncDispatcher runs the blacklist sweep inline. Used when no task queue
// is configured, and in tests.
type SyncDispatcher struct {
	svc BlacklistAller
}

func NewSyncDispatcher(svc BlacklistAller) *SyncDispatcher {
	return &SyncDispatcher{svc: svc}
}

func (d *SyncDispatcher) DispatchBlacklistAll(ctx context.Context, userID string) error {
	return d.svc.BlacklistAll(ctx, userID)
}
