package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/repository"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/events/kafka"
)

// ConsentService records and recalls per-client scope grants.
type ConsentService struct {
	consentRepo repository.ConsentRepository
	clientRepo  repository.OAuthClientRepository
	scopeRepo   repository.ScopeRepository
	publisher   kafka.Publisher
	logger      *zap.Logger
	now         func() time.Time
}

// NewConsentService creates a ConsentService.
func NewConsentService(
	consentRepo repository.ConsentRepository,
	clientRepo repository.OAuthClientRepository,
	scopeRepo repository.ScopeRepository,
	publisher kafka.Publisher,
	logger *zap.Logger,
) *ConsentService {
	return &ConsentService{
		consentRepo: consentRepo,
		clientRepo:  clientRepo,
		scopeRepo:   scopeRepo,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// GetConsentView resolves the requested scopes into display info for the
// consent screen, marking scopes the user already granted.
func (s *ConsentService) GetConsentView(ctx context.Context, userID uuid.UUID, clientID string, requestedScopes []string) (*models.ConsentView, error) {
	client, err := s.clientRepo.FindByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	granted := map[string]struct{}{}
	if existing, err := s.consentRepo.FindActive(ctx, userID, client.ID); err == nil {
		for _, scope := range existing.GrantedScopes {
			granted[scope] = struct{}{}
		}
	} else if !errors.Is(err, domainErrors.ErrNotFound) {
		return nil, err
	}

	view := &models.ConsentView{ClientID: client.ClientID, ClientName: client.Name}
	for _, name := range requestedScopes {
		def, err := s.scopeRepo.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, domainErrors.ErrScopeNotFound) {
				return nil, domainErrors.ErrInvalidScope
			}
			return nil, err
		}
		_, alreadyGranted := granted[name]
		view.Scopes = append(view.Scopes, models.ScopeView{
			Name:           def.Name,
			DisplayName:    def.DisplayName,
			Description:    def.Description,
			Category:       def.Category,
			Required:       def.Required,
			AlreadyGranted: alreadyGranted,
		})
	}
	return view, nil
}

// ProcessConsent records the user's decision. Every granted scope must be a
// valid definition, and every scope marked required must be present;
// missing required scopes fail with ErrConsentRequired. The consent row is
// upserted, never duplicated.
func (s *ConsentService) ProcessConsent(ctx context.Context, userID uuid.UUID, clientID string, grantedScopes []string, remember bool) (*models.UserConsent, error) {
	client, err := s.clientRepo.FindByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	grantedSet := make(map[string]struct{}, len(grantedScopes))
	for _, name := range grantedScopes {
		def, err := s.scopeRepo.FindByName(ctx, name)
		if err != nil {
			if errors.Is(err, domainErrors.ErrScopeNotFound) {
				return nil, domainErrors.ErrInvalidScope
			}
			return nil, err
		}
		grantedSet[def.Name] = struct{}{}
	}

	// Required scopes cannot be declined.
	allScopes, err := s.scopeRepo.FindByNames(ctx, client.Scopes)
	if err != nil {
		return nil, err
	}
	for _, def := range allScopes {
		if def.Required {
			if _, ok := grantedSet[def.Name]; !ok {
				return nil, domainErrors.ErrConsentRequired
			}
		}
	}

	consent := &models.UserConsent{
		ID:            uuid.New(),
		UserID:        userID,
		ClientID:      client.ID,
		GrantedScopes: grantedScopes,
		Remember:      remember,
		GrantedAt:     s.now(),
	}
	if err := s.consentRepo.Upsert(ctx, consent); err != nil {
		return nil, err
	}

	s.publishConsentEvent(ctx, models.AuthConsentGrantedV1, userID, client.ClientID, grantedScopes)
	return consent, nil
}

// HasValidConsent reports whether a non-revoked, remembered consent exists
// whose granted scopes cover every requested scope.
func (s *ConsentService) HasValidConsent(ctx context.Context, userID uuid.UUID, clientID string, scopes []string) (bool, error) {
	client, err := s.clientRepo.FindByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrClientNotFound) {
			return false, nil
		}
		return false, err
	}
	consent, err := s.consentRepo.FindActive(ctx, userID, client.ID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return consent.Remember && consent.Covers(scopes), nil
}

// RevokeConsent soft-revokes the user's consent for the client.
func (s *ConsentService) RevokeConsent(ctx context.Context, userID uuid.UUID, clientID string) error {
	client, err := s.clientRepo.FindByClientID(ctx, clientID)
	if err != nil {
		return err
	}
	if err := s.consentRepo.Revoke(ctx, userID, client.ID); err != nil {
		return err
	}
	s.publishConsentEvent(ctx, models.AuthConsentRevokedV1, userID, client.ClientID, nil)
	return nil
}

// RevokeAll soft-revokes every consent of the user. Returns the number
// revoked.
func (s *ConsentService) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.consentRepo.RevokeAllByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.publishConsentEvent(ctx, models.AuthConsentRevokedV1, userID, "", nil)
	}
	return count, nil
}

// ListConsents returns the user's active consents.
func (s *ConsentService) ListConsents(ctx context.Context, userID uuid.UUID) ([]*models.UserConsent, error) {
	return s.consentRepo.ListByUserID(ctx, userID)
}

func (s *ConsentService) publishConsentEvent(ctx context.Context, eventType string, userID uuid.UUID, clientID string, scopes []string) {
	payload := models.ConsentPayload{
		UserID:        userID.String(),
		ClientID:      clientID,
		GrantedScopes: scopes,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, eventType, userID.String(), payload); err != nil {
		s.logger.Error("Failed to publish consent event", zap.String("event_type", eventType), zap.Error(err))
	}
}
