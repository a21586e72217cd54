package repository

import (
	"context"
	"time"
)

// SessionRepository tracks live refresh-token sessions. A refresh token is
// only honored while its session ID exists here, which is what makes
// logout and logout-all actually revoke tokens instead of waiting for
// expiry.
type SessionRepository interface {
	// Save stores a session for a user with the refresh token's TTL.
	Save(ctx context.Context, sessionID string, userID int64, ttl time.Duration) error

	// Exists reports whether the session is still live.
	Exists(ctx context.Context, sessionID string) (bool, error)

	// Delete revokes a single session (logout).
	Delete(ctx context.Context, sessionID string) error

	// DeleteAllForUser revokes every session of a user (logout-all).
	// Returns the number of sessions revoked.
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)
}
