package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/interfaces"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/repository"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/events/kafka"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/crypto"
)

var validResponseTypes = map[string]struct{}{
	"code":     {},
	"token":    {},
	"id_token": {},
}

// claimBinding names one claim a scope contributes and how to extract its
// value from the user. Enumerating the mapping keeps claim provenance
// auditable: every claim in an issued token traces to exactly one binding.
type claimBinding struct {
	name    string
	extract func(u *models.User, a *AuthorizationService, ctx context.Context) (interface{}, bool)
}

// AuthorizationService validates OAuth-style authorize requests, expands
// scopes into permissions, computes effective permission sets, and builds
// the claim maps for issued tokens.
type AuthorizationService struct {
	clientRepo     repository.OAuthClientRepository
	scopeRepo      repository.ScopeRepository
	permissionRepo repository.PermissionRepository
	userRepo       repository.UserRepository
	roleTable      *RoleTable
	passwordSvc    interfaces.PasswordService
	publisher      kafka.Publisher
	logger         *zap.Logger
	scopeClaims    map[string][]claimBinding
	now            func() time.Time
}

// NewAuthorizationService creates an AuthorizationService.
func NewAuthorizationService(
	clientRepo repository.OAuthClientRepository,
	scopeRepo repository.ScopeRepository,
	permissionRepo repository.PermissionRepository,
	userRepo repository.UserRepository,
	roleTable *RoleTable,
	passwordSvc interfaces.PasswordService,
	publisher kafka.Publisher,
	logger *zap.Logger,
) *AuthorizationService {
	s := &AuthorizationService{
		clientRepo:     clientRepo,
		scopeRepo:      scopeRepo,
		permissionRepo: permissionRepo,
		userRepo:       userRepo,
		roleTable:      roleTable,
		passwordSvc:    passwordSvc,
		publisher:      publisher,
		logger:         logger,
		now:            time.Now,
	}
	s.scopeClaims = buildScopeClaimTable()
	return s
}

// buildScopeClaimTable enumerates which claims each well-known scope
// contributes. Unrecognized scopes contribute no claims; scopes named like
// "resource:level" contribute an access-level marker instead.
func buildScopeClaimTable() map[string][]claimBinding {
	return map[string][]claimBinding{
		"profile": {
			{"name", func(u *models.User, _ *AuthorizationService, _ context.Context) (interface{}, bool) {
				if u.DisplayName != nil {
					return *u.DisplayName, true
				}
				return u.Username, true
			}},
			{"phone_number", func(u *models.User, _ *AuthorizationService, _ context.Context) (interface{}, bool) {
				if u.PhoneNumber != nil {
					return *u.PhoneNumber, true
				}
				return nil, false
			}},
			{"birthdate", func(u *models.User, _ *AuthorizationService, _ context.Context) (interface{}, bool) {
				if u.BirthDate != nil {
					return u.BirthDate.Format("2006-01-02"), true
				}
				return nil, false
			}},
		},
		"email": {
			{"email", func(u *models.User, _ *AuthorizationService, _ context.Context) (interface{}, bool) {
				return u.Email, true
			}},
			{"email_verified", func(u *models.User, _ *AuthorizationService, _ context.Context) (interface{}, bool) {
				return u.EmailVerified(), true
			}},
		},
		"roles": {
			{"roles", func(u *models.User, s *AuthorizationService, ctx context.Context) (interface{}, bool) {
				roles, err := s.userRepo.GetRoles(ctx, u.ID)
				if err != nil {
					return nil, false
				}
				return roles, true
			}},
			{"permissions", func(u *models.User, s *AuthorizationService, ctx context.Context) (interface{}, bool) {
				perms, err := s.ResolvePermissions(ctx, u.ID)
				if err != nil {
					return nil, false
				}
				return perms, true
			}},
		},
	}
}

// ValidateAuthorizeRequest checks an authorize request in fixed order:
// client existence, redirect URI membership, response type, scope
// resolvability, and PKCE presence for clients that require it. Failures
// are structured OAuth errors, never bare booleans.
func (s *AuthorizationService) ValidateAuthorizeRequest(ctx context.Context, req models.AuthorizeRequest) (*models.ValidatedAuthorizeRequest, *models.OAuthError) {
	client, err := s.clientRepo.FindByClientID(ctx, req.ClientID)
	if err != nil || !client.IsActive {
		return nil, &models.OAuthError{Code: models.OAuthErrInvalidClient, Description: "unknown or inactive client"}
	}

	if !client.AllowsRedirectURI(req.RedirectURI) {
		return nil, &models.OAuthError{Code: models.OAuthErrInvalidRequest, Description: "redirect_uri is not registered for this client"}
	}

	if _, ok := validResponseTypes[req.ResponseType]; !ok {
		return nil, &models.OAuthError{Code: models.OAuthErrUnsupportedResponseType, Description: "response_type must be code, token or id_token"}
	}

	scopes := strings.Fields(req.Scope)
	if len(scopes) == 0 {
		return nil, &models.OAuthError{Code: models.OAuthErrInvalidScope, Description: "scope must not be empty"}
	}
	for _, scope := range scopes {
		if !client.AllowsScope(scope) {
			return nil, &models.OAuthError{Code: models.OAuthErrInvalidScope, Description: "scope " + scope + " is not registered for this client"}
		}
		if _, err := s.scopeRepo.FindByName(ctx, scope); err != nil {
			return nil, &models.OAuthError{Code: models.OAuthErrInvalidScope, Description: "scope " + scope + " is not defined"}
		}
	}

	if client.RequirePKCE && req.CodeChallenge == "" {
		return nil, &models.OAuthError{Code: models.OAuthErrInvalidRequest, Description: "code_challenge is required for this client"}
	}

	return &models.ValidatedAuthorizeRequest{
		Client:       client,
		ClientID:     client.ClientID,
		RedirectURI:  req.RedirectURI,
		ResponseType: req.ResponseType,
		Scopes:       scopes,
		State:        req.State,
	}, nil
}

// Authorize reports whether the user may be granted the requested scopes
// for the client: the user must exist, be verified and unlocked, the client
// must exist, every scope must be valid for the client, and the user must
// hold every permission the scopes imply.
func (s *AuthorizationService) Authorize(ctx context.Context, userID uuid.UUID, clientID string, requestedScopes []string) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if !user.EmailVerified() || user.IsLockedOut(s.now()) {
		return false, nil
	}

	client, err := s.clientRepo.FindByClientID(ctx, clientID)
	if err != nil {
		return false, err
	}
	if !client.IsActive {
		return false, nil
	}

	for _, scope := range requestedScopes {
		if !client.AllowsScope(scope) {
			return false, nil
		}
	}

	required, err := s.scopePermissions(ctx, requestedScopes)
	if err != nil {
		return false, err
	}
	held, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	heldSet := make(map[string]struct{}, len(held))
	for _, p := range held {
		heldSet[p] = struct{}{}
	}
	for _, p := range required {
		if _, ok := heldSet[p]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// BuildClaims assembles the claim map for a token issued with the granted
// scopes. "sub" is always present; each recognized scope contributes its
// enumerated bindings; scopes of the form "resource:level" contribute an
// access-level marker; anything else contributes nothing.
func (s *AuthorizationService) BuildClaims(ctx context.Context, userID uuid.UUID, grantedScopes []string) (map[string]interface{}, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	claims := map[string]interface{}{"sub": user.ID.String()}
	for _, scope := range grantedScopes {
		if bindings, ok := s.scopeClaims[scope]; ok {
			for _, b := range bindings {
				if value, present := b.extract(user, s, ctx); present {
					claims[b.name] = value
				}
			}
			continue
		}
		// Custom resource scopes carry an access-level marker.
		if resource, level, found := strings.Cut(scope, ":"); found && (level == "read" || level == "write") {
			claims[resource+"_access"] = level
		}
	}
	return claims, nil
}

// GetEffectivePermissions returns the deduplicated, sorted union of the
// permissions implied by the scopes and the user's resolved permission set.
func (s *AuthorizationService) GetEffectivePermissions(ctx context.Context, userID uuid.UUID, scopes []string) ([]string, error) {
	scopePerms, err := s.scopePermissions(ctx, scopes)
	if err != nil {
		return nil, err
	}
	userPerms, err := s.ResolvePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(scopePerms)+len(userPerms))
	for _, p := range scopePerms {
		set[p] = struct{}{}
	}
	for _, p := range userPerms {
		set[p] = struct{}{}
	}
	return sortedSet(set), nil
}

// ResolvePermissions computes the user's permission set: the union of
// non-revoked, non-expired direct grants and the permissions implied by the
// user's roles via the static role table.
func (s *AuthorizationService) ResolvePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	roles, err := s.userRepo.GetRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, p := range s.roleTable.PermissionsFor(roles) {
		set[p] = struct{}{}
	}

	grants, err := s.permissionRepo.ListEffectiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, g := range grants {
		if g.Effective(now) {
			set[g.Permission] = struct{}{}
		}
	}
	return sortedSet(set), nil
}

// scopePermissions expands scope names into the permissions they imply.
func (s *AuthorizationService) scopePermissions(ctx context.Context, scopes []string) ([]string, error) {
	if len(scopes) == 0 {
		return nil, nil
	}
	defs, err := s.scopeRepo.FindByNames(ctx, scopes)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{})
	for _, def := range defs {
		for _, p := range def.Permissions {
			set[p] = struct{}{}
		}
	}
	return sortedSet(set), nil
}

// GrantPermission records a direct permission grant.
func (s *AuthorizationService) GrantPermission(ctx context.Context, userID uuid.UUID, permission string, grantedBy uuid.UUID, expiresAt *time.Time) error {
	if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return err
	}
	grant := &models.UserPermission{
		ID:         uuid.New(),
		UserID:     userID,
		Permission: permission,
		GrantedBy:  grantedBy,
		GrantedAt:  s.now(),
		ExpiresAt:  expiresAt,
	}
	if err := s.permissionRepo.Grant(ctx, grant); err != nil {
		return err
	}
	s.publishPermissionEvent(ctx, models.AuthPermissionGrantedV1, userID, permission, grantedBy.String())
	return nil
}

// RevokePermission revokes a direct permission grant.
func (s *AuthorizationService) RevokePermission(ctx context.Context, userID uuid.UUID, permission string) error {
	if err := s.permissionRepo.Revoke(ctx, userID, permission); err != nil {
		return err
	}
	s.publishPermissionEvent(ctx, models.AuthPermissionRevokedV1, userID, permission, "")
	return nil
}

// ListPermissionGrants returns the user's direct grants, newest first.
func (s *AuthorizationService) ListPermissionGrants(ctx context.Context, userID uuid.UUID) ([]*models.UserPermission, error) {
	return s.permissionRepo.ListByUserID(ctx, userID)
}

func (s *AuthorizationService) publishPermissionEvent(ctx context.Context, eventType string, userID uuid.UUID, permission, grantedBy string) {
	payload := models.PermissionPayload{
		UserID:     userID.String(),
		Permission: permission,
		GrantedBy:  grantedBy,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, eventType, userID.String(), payload); err != nil {
		s.logger.Error("Failed to publish permission event", zap.String("event_type", eventType), zap.Error(err))
	}
}

// CreateClient registers a new OAuth client. The client id is generated;
// confidential clients also get a one-time-visible secret.
func (s *AuthorizationService) CreateClient(ctx context.Context, createdBy uuid.UUID, params models.CreateClientParams) (*models.OAuthClient, string, error) {
	clientID, err := crypto.GenerateOpaqueToken(16)
	if err != nil {
		return nil, "", err
	}

	var secret string
	var secretHash *string
	if params.Confidential {
		secret, err = crypto.GenerateOpaqueToken(32)
		if err != nil {
			return nil, "", err
		}
		hashed, err := s.passwordSvc.HashPassword(secret)
		if err != nil {
			return nil, "", err
		}
		secretHash = &hashed
	}

	grantTypes := params.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code", "refresh_token"}
	}

	client := &models.OAuthClient{
		ID:           uuid.New(),
		ClientID:     clientID,
		SecretHash:   secretHash,
		Name:         params.Name,
		RedirectURIs: params.RedirectURIs,
		Scopes:       params.Scopes,
		GrantTypes:   grantTypes,
		RequirePKCE:  params.RequirePKCE,
		IsActive:     true,
		CreatedBy:    createdBy,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, "", err
	}
	return client, secret, nil
}

// UpdateClient applies a partial update to a client.
func (s *AuthorizationService) UpdateClient(ctx context.Context, id uuid.UUID, params models.UpdateClientParams) (*models.OAuthClient, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if params.Name != nil {
		client.Name = *params.Name
	}
	if params.RedirectURIs != nil {
		client.RedirectURIs = *params.RedirectURIs
	}
	if params.Scopes != nil {
		client.Scopes = *params.Scopes
	}
	if params.RequirePKCE != nil {
		client.RequirePKCE = *params.RequirePKCE
	}
	if params.IsActive != nil {
		client.IsActive = *params.IsActive
	}
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, err
	}
	return client, nil
}

// DeactivateClient soft-deletes a client.
func (s *AuthorizationService) DeactivateClient(ctx context.Context, id uuid.UUID) error {
	return s.clientRepo.Deactivate(ctx, id)
}

// GetClient returns a client by its public client id.
func (s *AuthorizationService) GetClient(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	return s.clientRepo.FindByClientID(ctx, clientID)
}

// ListClients lists registered clients.
func (s *AuthorizationService) ListClients(ctx context.Context, activeOnly bool) ([]*models.OAuthClient, error) {
	return s.clientRepo.List(ctx, activeOnly)
}

// CreateScope registers a new scope definition.
func (s *AuthorizationService) CreateScope(ctx context.Context, params models.CreateScopeParams) (*models.ScopeDefinition, error) {
	scope := &models.ScopeDefinition{
		ID:          uuid.New(),
		Name:        params.Name,
		DisplayName: params.DisplayName,
		Description: params.Description,
		Category:    params.Category,
		Required:    params.Required,
		Default:     params.Default,
		Permissions: params.Permissions,
		IsActive:    true,
	}
	if err := s.scopeRepo.Create(ctx, scope); err != nil {
		return nil, err
	}
	return scope, nil
}

// ListScopes lists scope definitions.
func (s *AuthorizationService) ListScopes(ctx context.Context, activeOnly bool) ([]*models.ScopeDefinition, error) {
	return s.scopeRepo.List(ctx, activeOnly)
}

// DeactivateScope soft-deletes a scope definition.
func (s *AuthorizationService) DeactivateScope(ctx context.Context, id uuid.UUID) error {
	return s.scopeRepo.Deactivate(ctx, id)
}

// VerifyClientSecret checks a confidential client's secret.
func (s *AuthorizationService) VerifyClientSecret(ctx context.Context, clientID, secret string) (bool, error) {
	client, err := s.clientRepo.FindByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrClientNotFound) {
			return false, nil
		}
		return false, err
	}
	if client.SecretHash == nil {
		return false, nil
	}
	return s.passwordSvc.CheckPasswordHash(secret, *client.SecretHash)
}
