package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/interfaces"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/repository"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/events/kafka"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/metrics"
)

const maxUserInfoBody = 1 << 20

// providerClient pairs an oauth2 exchange config with the provider's
// userinfo endpoint.
type providerClient struct {
	oauth    *oauth2.Config
	userInfo string
	display  string
}

// ExternalAuthService signs users in through configured external identity
// providers. Resolution order on callback: existing link, then email match,
// then a fresh account.
type ExternalAuthService struct {
	userRepo     repository.UserRepository
	externalRepo repository.ExternalAccountRepository
	audit        interfaces.AuditRecorder
	publisher    kafka.Publisher
	providers    map[string]providerClient
	defaultRole  string
	httpClient   *http.Client
	logger       *zap.Logger
	now          func() time.Time
}

// NewExternalAuthService creates an ExternalAuthService from the configured
// provider allow-list.
func NewExternalAuthService(
	userRepo repository.UserRepository,
	externalRepo repository.ExternalAccountRepository,
	audit interfaces.AuditRecorder,
	publisher kafka.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *ExternalAuthService {
	providers := make(map[string]providerClient, len(cfg.OAuthProviders))
	for name, pc := range cfg.OAuthProviders {
		providers[strings.ToLower(name)] = providerClient{
			oauth: &oauth2.Config{
				ClientID:     pc.ClientID,
				ClientSecret: pc.ClientSecret,
				RedirectURL:  pc.RedirectURL,
				Scopes:       pc.Scopes,
				Endpoint: oauth2.Endpoint{
					AuthURL:  pc.AuthURL,
					TokenURL: pc.TokenURL,
				},
			},
			userInfo: pc.UserInfoURL,
			display:  pc.DisplayName,
		}
	}
	return &ExternalAuthService{
		userRepo:     userRepo,
		externalRepo: externalRepo,
		audit:        audit,
		publisher:    publisher,
		providers:    providers,
		defaultRole:  cfg.Authorization.DefaultRole,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		logger:       logger,
		now:          time.Now,
	}
}

// SupportedProviders lists the configured provider names.
func (s *ExternalAuthService) SupportedProviders() []string {
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	return names
}

// BeginExternalLogin returns the provider's authorization URL for the given
// CSRF state. Unknown providers are rejected before any redirect happens.
func (s *ExternalAuthService) BeginExternalLogin(provider, state string) (string, error) {
	pc, ok := s.providers[strings.ToLower(provider)]
	if !ok {
		return "", domainErrors.ErrUnsupportedProvider
	}
	return pc.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange trades the callback code for provider tokens and fetches the
// normalized identity from the userinfo endpoint.
func (s *ExternalAuthService) Exchange(ctx context.Context, provider, code string) (*models.ExternalIdentity, error) {
	name := strings.ToLower(provider)
	pc, ok := s.providers[name]
	if !ok {
		return nil, domainErrors.ErrUnsupportedProvider
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := pc.oauth.Exchange(ctx, code)
	if err != nil {
		s.logger.Warn("External code exchange failed", zap.String("provider", name), zap.Error(err))
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}

	identity, err := s.fetchUserInfo(ctx, name, pc, token)
	if err != nil {
		s.logger.Warn("Fetching external user info failed", zap.String("provider", name), zap.Error(err))
		return nil, err
	}
	return identity, nil
}

// userInfoResponse covers the field spellings of the supported providers.
type userInfoResponse struct {
	Sub      string      `json:"sub"`
	ID       json.Number `json:"id"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Login    string      `json:"login"`
	Nickname string      `json:"nickname"`
}

func (s *ExternalAuthService) fetchUserInfo(ctx context.Context, provider string, pc providerClient, token *oauth2.Token) (*models.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pc.userInfo, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBody))
	if err != nil {
		return nil, err
	}

	var info userInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decoding user info: %w", err)
	}

	providerUserID := info.Sub
	if providerUserID == "" {
		providerUserID = info.ID.String()
	}
	if providerUserID == "" {
		return nil, fmt.Errorf("user info is missing a subject identifier")
	}

	displayName := info.Name
	if displayName == "" {
		displayName = info.Nickname
	}
	if displayName == "" {
		displayName = info.Login
	}

	return &models.ExternalIdentity{
		Provider:       provider,
		ProviderUserID: providerUserID,
		Email:          strings.ToLower(strings.TrimSpace(info.Email)),
		DisplayName:    displayName,
	}, nil
}

// CompleteExternalLogin resolves the asserted identity to a local user: an
// existing link wins, then a case-insensitive email match gets the identity
// linked implicitly, and otherwise a fresh account is provisioned with the
// email already confirmed (the provider vouched for it).
func (s *ExternalAuthService) CompleteExternalLogin(ctx context.Context, identity *models.ExternalIdentity) (*models.ExternalLoginResult, error) {
	if _, ok := s.providers[strings.ToLower(identity.Provider)]; !ok {
		return nil, domainErrors.ErrUnsupportedProvider
	}

	user, err := s.userRepo.FindByExternalAccount(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil {
		if err := s.signInAllowed(user); err != nil {
			metrics.ExternalLoginsTotal.WithLabelValues(identity.Provider, "rejected").Inc()
			return nil, err
		}
		metrics.ExternalLoginsTotal.WithLabelValues(identity.Provider, "existing").Inc()
		return &models.ExternalLoginResult{User: user, IsNewUser: false}, nil
	}
	if !domainErrors.IsNotFound(err) {
		return nil, err
	}

	// Past this point the identity is unknown, so an asserted email is
	// mandatory: it is the only way to attach the identity to an account.
	if identity.Email == "" {
		metrics.ExternalLoginsTotal.WithLabelValues(identity.Provider, "rejected").Inc()
		return nil, domainErrors.ErrMissingEmail
	}

	user, err = s.userRepo.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		return s.linkToExisting(ctx, user, identity)
	case domainErrors.IsNotFound(err):
		return s.provisionUser(ctx, identity)
	default:
		return nil, err
	}
}

func (s *ExternalAuthService) signInAllowed(user *models.User) error {
	switch user.Status {
	case models.UserStatusBlocked, models.UserStatusDeleted:
		return domainErrors.ErrSignInDisallowed
	}
	if user.IsLockedOut(s.now()) {
		return domainErrors.ErrUserLockedOut
	}
	return nil
}

func (s *ExternalAuthService) linkToExisting(ctx context.Context, user *models.User, identity *models.ExternalIdentity) (*models.ExternalLoginResult, error) {
	if err := s.signInAllowed(user); err != nil {
		metrics.ExternalLoginsTotal.WithLabelValues(identity.Provider, "rejected").Inc()
		return nil, err
	}

	account := &models.ExternalAccount{
		ID:              uuid.New(),
		UserID:          user.ID,
		Provider:        identity.Provider,
		ProviderUserID:  identity.ProviderUserID,
		ProviderDisplay: identity.DisplayName,
		LinkedAt:        s.now(),
	}
	if err := s.externalRepo.Create(ctx, account); err != nil {
		s.logger.Error("Failed to link external identity by email match",
			zap.String("provider", identity.Provider), zap.String("user_id", user.ID.String()), zap.Error(err))
		return nil, err
	}

	s.audit.RecordActivity(ctx, user.ID, "external_identity_linked", map[string]interface{}{
		"provider": identity.Provider,
		"implicit": true,
	})
	s.publishLinkEvent(ctx, models.AuthAccountLinkedV1, user.ID, identity.Provider)
	metrics.ExternalLoginsTotal.WithLabelValues(identity.Provider, "linked").Inc()

	return &models.ExternalLoginResult{User: user, IsNewUser: false}, nil
}

func (s *ExternalAuthService) provisionUser(ctx context.Context, identity *models.ExternalIdentity) (*models.ExternalLoginResult, error) {
	now := s.now()
	user := &models.User{
		ID:              uuid.New(),
		Username:        s.deriveUsername(ctx, identity),
		Email:           identity.Email,
		Status:          models.UserStatusActive,
		EmailVerifiedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if identity.DisplayName != "" {
		name := identity.DisplayName
		user.DisplayName = &name
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	account := &models.ExternalAccount{
		ID:              uuid.New(),
		UserID:          user.ID,
		Provider:        identity.Provider,
		ProviderUserID:  identity.ProviderUserID,
		ProviderDisplay: identity.DisplayName,
		IsPrimary:       true,
		LinkedAt:        now,
	}
	if err := s.externalRepo.Create(ctx, account); err != nil {
		// An account without its identity link would strand the user, so
		// undo the registration.
		if delErr := s.userRepo.Delete(ctx, user.ID); delErr != nil {
			s.logger.Error("Failed to roll back provisional user",
				zap.String("user_id", user.ID.String()), zap.Error(delErr))
		}
		return nil, err
	}

	if err := s.userRepo.AssignRole(ctx, user.ID, s.defaultRole); err != nil {
		s.logger.Error("Failed to assign default role to provisioned user",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.Roles = []string{s.defaultRole}
	}

	s.audit.RecordAuthEvent(ctx, &user.ID, "external_registration", "success", "", "", map[string]interface{}{
		"provider": identity.Provider,
	})
	s.publishRegisteredEvent(ctx, user, identity.Provider)
	metrics.ExternalLoginsTotal.WithLabelValues(identity.Provider, "registered").Inc()

	return &models.ExternalLoginResult{User: user, IsNewUser: true}, nil
}

// deriveUsername builds a username from the email local part, suffixing it
// until it is free.
func (s *ExternalAuthService) deriveUsername(ctx context.Context, identity *models.ExternalIdentity) string {
	base, _, _ := strings.Cut(identity.Email, "@")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return -1
		}
	}, base)
	if base == "" {
		base = identity.Provider + "_user"
	}

	candidate := base
	for i := 0; i < 5; i++ {
		if _, err := s.userRepo.FindByUsername(ctx, candidate); domainErrors.IsNotFound(err) {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%s", base, uuid.NewString()[:8])
	}
	return candidate
}

func (s *ExternalAuthService) publishLinkEvent(ctx context.Context, eventType string, userID uuid.UUID, provider string) {
	payload := models.AccountLinkPayload{
		UserID:     userID.String(),
		Provider:   provider,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, eventType, userID.String(), payload); err != nil {
		s.logger.Error("Failed to publish account link event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func (s *ExternalAuthService) publishRegisteredEvent(ctx context.Context, user *models.User, provider string) {
	payload := models.UserRegisteredPayload{
		UserID:       user.ID.String(),
		Username:     user.Username,
		Email:        user.Email,
		External:     true,
		Provider:     provider,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, models.AuthUserRegisteredV1, user.ID.String(), payload); err != nil {
		s.logger.Error("Failed to publish registration event", zap.Error(err))
	}
}
