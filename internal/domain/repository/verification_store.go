package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// VerificationStore holds pending email-verification tokens. Tokens are
// single-use and expire server-side.
type VerificationStore interface {
	Put(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	// Take atomically fetches and removes the token's user.
	Take(ctx context.Context, token string) (uuid.UUID, error)
}
