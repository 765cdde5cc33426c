package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) FindByExternalAccount(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	args := m.Called(ctx, provider, providerUserID)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash *string, expiresAt *time.Time) error {
	return m.Called(ctx, userID, tokenHash, expiresAt).Error(0)
}

func (m *mockUserRepo) RotateRefreshToken(ctx context.Context, userID uuid.UUID, expectedHash string, newHash *string, expiresAt *time.Time) (bool, error) {
	args := m.Called(ctx, userID, expectedHash, newHash, expiresAt)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepo) IncrementFailedLoginAttempts(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockUserRepo) ResetFailedLoginAttempts(ctx context.Context, userID uuid.UUID) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockUserRepo) SetLockout(ctx context.Context, userID uuid.UUID, until *time.Time) error {
	return m.Called(ctx, userID, until).Error(0)
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func (m *mockUserRepo) GetRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, userID)
	if r := args.Get(0); r != nil {
		return r.([]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUserRepo) AssignRole(ctx context.Context, userID uuid.UUID, role string) error {
	return m.Called(ctx, userID, role).Error(0)
}

type mockSessionRepo struct{ mock.Mock }

func (m *mockSessionRepo) Create(ctx context.Context, session *models.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepo) Update(ctx context.Context, session *models.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *mockSessionRepo) ListActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.Session, error) {
	args := m.Called(ctx, userID, now)
	if s := args.Get(0); s != nil {
		return s.([]*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepo) CountActiveByUserID(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	args := m.Called(ctx, userID, now)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepo) FindLeastRecentlyUsed(ctx context.Context, userID uuid.UUID, now time.Time) (*models.Session, error) {
	args := m.Called(ctx, userID, now)
	if s := args.Get(0); s != nil {
		return s.(*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockSessionRepo) DeactivateAllByUserID(ctx context.Context, userID uuid.UUID, except *uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID, except)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockSessionRepo) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type mockSessionCache struct{ mock.Mock }

func (m *mockSessionCache) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*models.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSessionCache) Set(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionCache) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type mockExternalAccountRepo struct{ mock.Mock }

func (m *mockExternalAccountRepo) Create(ctx context.Context, account *models.ExternalAccount) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockExternalAccountRepo) FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*models.ExternalAccount, error) {
	args := m.Called(ctx, provider, providerUserID)
	if a := args.Get(0); a != nil {
		return a.(*models.ExternalAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExternalAccountRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]models.ExternalAccount, error) {
	args := m.Called(ctx, userID)
	if a := args.Get(0); a != nil {
		return a.([]models.ExternalAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExternalAccountRepo) ListByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) ([]models.ExternalAccount, error) {
	args := m.Called(ctx, userID, provider)
	if a := args.Get(0); a != nil {
		return a.([]models.ExternalAccount), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockExternalAccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockExternalAccountRepo) DeleteByKey(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error {
	return m.Called(ctx, userID, provider, providerUserID).Error(0)
}

func (m *mockExternalAccountRepo) DeleteAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockExternalAccountRepo) SetPrimary(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error {
	return m.Called(ctx, userID, provider, providerUserID).Error(0)
}

type mockConflictStore struct{ mock.Mock }

func (m *mockConflictStore) Put(ctx context.Context, conflict *models.PendingConflict, ttl time.Duration) error {
	return m.Called(ctx, conflict, ttl).Error(0)
}

func (m *mockConflictStore) Take(ctx context.Context, token string) (*models.PendingConflict, error) {
	args := m.Called(ctx, token)
	if c := args.Get(0); c != nil {
		return c.(*models.PendingConflict), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockVerificationStore struct{ mock.Mock }

func (m *mockVerificationStore) Put(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	return m.Called(ctx, token, userID, ttl).Error(0)
}

func (m *mockVerificationStore) Take(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type mockClientRepo struct{ mock.Mock }

func (m *mockClientRepo) Create(ctx context.Context, client *models.OAuthClient) error {
	return m.Called(ctx, client).Error(0)
}

func (m *mockClientRepo) FindByClientID(ctx context.Context, clientID string) (*models.OAuthClient, error) {
	args := m.Called(ctx, clientID)
	if c := args.Get(0); c != nil {
		return c.(*models.OAuthClient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClientRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.OAuthClient, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*models.OAuthClient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClientRepo) List(ctx context.Context, activeOnly bool) ([]*models.OAuthClient, error) {
	args := m.Called(ctx, activeOnly)
	if c := args.Get(0); c != nil {
		return c.([]*models.OAuthClient), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClientRepo) Update(ctx context.Context, client *models.OAuthClient) error {
	return m.Called(ctx, client).Error(0)
}

func (m *mockClientRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockScopeRepo struct{ mock.Mock }

func (m *mockScopeRepo) Create(ctx context.Context, scope *models.ScopeDefinition) error {
	return m.Called(ctx, scope).Error(0)
}

func (m *mockScopeRepo) FindByName(ctx context.Context, name string) (*models.ScopeDefinition, error) {
	args := m.Called(ctx, name)
	if s := args.Get(0); s != nil {
		return s.(*models.ScopeDefinition), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScopeRepo) FindByNames(ctx context.Context, names []string) ([]*models.ScopeDefinition, error) {
	args := m.Called(ctx, names)
	if s := args.Get(0); s != nil {
		return s.([]*models.ScopeDefinition), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScopeRepo) List(ctx context.Context, activeOnly bool) ([]*models.ScopeDefinition, error) {
	args := m.Called(ctx, activeOnly)
	if s := args.Get(0); s != nil {
		return s.([]*models.ScopeDefinition), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockScopeRepo) Update(ctx context.Context, scope *models.ScopeDefinition) error {
	return m.Called(ctx, scope).Error(0)
}

func (m *mockScopeRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockConsentRepo struct{ mock.Mock }

func (m *mockConsentRepo) Upsert(ctx context.Context, consent *models.UserConsent) error {
	return m.Called(ctx, consent).Error(0)
}

func (m *mockConsentRepo) FindActive(ctx context.Context, userID, clientID uuid.UUID) (*models.UserConsent, error) {
	args := m.Called(ctx, userID, clientID)
	if c := args.Get(0); c != nil {
		return c.(*models.UserConsent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConsentRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserConsent, error) {
	args := m.Called(ctx, userID)
	if c := args.Get(0); c != nil {
		return c.([]*models.UserConsent), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockConsentRepo) Revoke(ctx context.Context, userID, clientID uuid.UUID) error {
	return m.Called(ctx, userID, clientID).Error(0)
}

func (m *mockConsentRepo) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type mockPermissionRepo struct{ mock.Mock }

func (m *mockPermissionRepo) Grant(ctx context.Context, grant *models.UserPermission) error {
	return m.Called(ctx, grant).Error(0)
}

func (m *mockPermissionRepo) ListEffectiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserPermission, error) {
	args := m.Called(ctx, userID)
	if p := args.Get(0); p != nil {
		return p.([]*models.UserPermission), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPermissionRepo) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.UserPermission, error) {
	args := m.Called(ctx, userID)
	if p := args.Get(0); p != nil {
		return p.([]*models.UserPermission), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockPermissionRepo) Revoke(ctx context.Context, userID uuid.UUID, permission string) error {
	return m.Called(ctx, userID, permission).Error(0)
}

type mockPasswordService struct{ mock.Mock }

func (m *mockPasswordService) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *mockPasswordService) CheckPasswordHash(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

type mockTOTPService struct{ mock.Mock }

func (m *mockTOTPService) GenerateSecret(accountName string) (string, string, error) {
	args := m.Called(accountName)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockTOTPService) Verify(code, secret string) bool {
	return m.Called(code, secret).Bool(0)
}

// stubAudit is a no-op audit sink. Audit calls are fire-and-forget so the
// tests only need them to not panic.
type stubAudit struct{}

func (stubAudit) RecordAuthEvent(context.Context, *uuid.UUID, string, string, string, string, map[string]interface{}) {
}
func (stubAudit) RecordFailedAttempt(context.Context, string, string, string, string) {}
func (stubAudit) RecordActivity(context.Context, uuid.UUID, string, map[string]interface{}) {}
func (stubAudit) RecordSecurityEvent(context.Context, *uuid.UUID, string, map[string]interface{}) {}

// recordingPublisher captures event types for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, _ string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) published(eventType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e == eventType {
			return true
		}
	}
	return false
}
