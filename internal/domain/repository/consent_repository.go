package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// ConsentRepository is the persistence interface for user consents.
// At most one active (non-revoked) row exists per (user, client).
type ConsentRepository interface {
	// Upsert inserts or replaces the active consent row for
	// (consent.UserID, consent.ClientID).
	Upsert(ctx context.Context, consent *models.UserConsent) error
	FindActive(ctx context.Context, userID, clientID uuid.UUID) (*models.UserConsent, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserConsent, error)
	Revoke(ctx context.Context, userID, clientID uuid.UUID) error
	RevokeAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}

// PermissionRepository is the persistence interface for direct permission
// grants.
type PermissionRepository interface {
	Grant(ctx context.Context, grant *models.UserPermission) error
	// ListEffectiveByUserID returns non-revoked, non-expired grants.
	ListEffectiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserPermission, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserPermission, error)
	Revoke(ctx context.Context, userID uuid.UUID, permission string) error
}
