package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// OAuthClientRepository is the persistence interface for registered clients.
// Clients are soft-deleted (IsActive=false), never removed.
type OAuthClientRepository interface {
	Create(ctx context.Context, client *models.OAuthClient) error
	FindByClientID(ctx context.Context, clientID string) (*models.OAuthClient, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.OAuthClient, error)
	List(ctx context.Context, activeOnly bool) ([]*models.OAuthClient, error)
	Update(ctx context.Context, client *models.OAuthClient) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// ScopeRepository is the persistence interface for scope definitions.
type ScopeRepository interface {
	Create(ctx context.Context, scope *models.ScopeDefinition) error
	FindByName(ctx context.Context, name string) (*models.ScopeDefinition, error)
	FindByNames(ctx context.Context, names []string) ([]*models.ScopeDefinition, error)
	List(ctx context.Context, activeOnly bool) ([]*models.ScopeDefinition, error)
	Update(ctx context.Context, scope *models.ScopeDefinition) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}
