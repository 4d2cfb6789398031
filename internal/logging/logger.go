// Package logging decouples the server from a concrete logging backend.
// Everything logs through the Logger interface; the process wires in the
// slog-backed implementation at startup.
package logging

import "context"

// Logger is a context-aware structured logger. The variadic args are
// alternating key/value pairs:
//
//	log.Info(ctx, "http server listening", "addr", addr)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always carries the given pairs,
	// used to tag subsystems ("module", "tasks").
	With(args ...any) Logger
}
