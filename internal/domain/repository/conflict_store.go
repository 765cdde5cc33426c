package repository

import (
	"context"
	"time"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// ConflictStore holds pending linking conflicts keyed by their single-use
// token. Entries expire server-side after the configured TTL, so abandoned
// conflicts cannot accumulate and resolution works across instances.
type ConflictStore interface {
	Put(ctx context.Context, conflict *models.PendingConflict, ttl time.Duration) error
	// Take atomically fetches and removes the conflict, making the token
	// single-use regardless of the resolution outcome.
	Take(ctx context.Context, token string) (*models.PendingConflict, error)
}
