package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// SessionRepository is the persistence interface for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error

	// ListActiveByUserID returns active, non-expired sessions ordered by
	// last activity, most recent first.
	ListActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.Session, error)
	CountActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	// FindLeastRecentlyUsed returns the active session with the oldest
	// last-activity timestamp, the eviction candidate under the cap.
	FindLeastRecentlyUsed(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Session, error)

	Deactivate(ctx context.Context, id uuid.UUID) error
	// DeactivateAllByUserID deactivates every active session of the user,
	// sparing except when non-nil. Returns the number deactivated.
	DeactivateAllByUserID(ctx context.Context, userID uuid.UUID, except *uuid.UUID) (int64, error)
	// DeactivateExpired flips active=false on every expired-but-active
	// session. Returns the number swept.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionCache is a read-through cache in front of the session table.
// Implementations return ErrSessionNotFound on a miss.
type SessionCache interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Set(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}
