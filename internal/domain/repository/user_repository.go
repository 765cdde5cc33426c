package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// UserRepository is the persistence interface for users. Email lookups are
// case-insensitive.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	// FindByExternalAccount resolves the user owning the given
	// (provider, provider user id) pair.
	FindByExternalAccount(ctx context.Context, provider, providerUserID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateRefreshToken stores (or clears, with nils) the user's current
	// refresh token hash and expiry.
	UpdateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash *string, expiresAt *time.Time) error
	// RotateRefreshToken swaps the stored refresh token hash only if it
	// still equals expectedHash. Returns false when another rotation won
	// the race (compare-and-swap).
	RotateRefreshToken(ctx context.Context, userID uuid.UUID, expectedHash string, newHash *string, expiresAt *time.Time) (bool, error)

	IncrementFailedLoginAttempts(ctx context.Context, userID uuid.UUID) (int, error)
	ResetFailedLoginAttempts(ctx context.Context, userID uuid.UUID) error
	SetLockout(ctx context.Context, userID uuid.UUID, until *time.Time) error
	UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error

	GetRoles(ctx context.Context, userID uuid.UUID) ([]string, error)
	AssignRole(ctx context.Context, userID uuid.UUID, role string) error
}
