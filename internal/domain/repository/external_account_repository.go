package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// ExternalAccountRepository is the persistence interface for external
// identity links. (provider, provider_user_id) is unique across the table.
type ExternalAccountRepository interface {
	Create(ctx context.Context, account *models.ExternalAccount) error
	FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.ExternalAccount, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.ExternalAccount, error)
	ListByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) ([]models.ExternalAccount, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByKey(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error
	DeleteAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	// SetPrimary marks the named link primary and clears the flag on the
	// user's other links.
	SetPrimary(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error
}
