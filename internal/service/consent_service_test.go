package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

type consentFixture struct {
	consents *mockConsentRepo
	clients  *mockClientRepo
	scopes   *mockScopeRepo
	pub      *recordingPublisher
	svc      *ConsentService
}

func newConsentFixture() *consentFixture {
	f := &consentFixture{
		consents: &mockConsentRepo{},
		clients:  &mockClientRepo{},
		scopes:   &mockScopeRepo{},
		pub:      &recordingPublisher{},
	}
	f.svc = NewConsentService(f.consents, f.clients, f.scopes, f.pub, zap.NewNop())
	return f
}

func TestGetConsentView_MarksAlreadyGranted(t *testing.T) {
	f := newConsentFixture()
	userID := uuid.New()
	client := testClient()

	f.clients.On("FindByClientID", mock.Anything, client.ClientID).Return(client, nil).Once()
	f.consents.On("FindActive", mock.Anything, userID, client.ID).Return(&models.UserConsent{
		UserID:        userID,
		ClientID:      client.ID,
		GrantedScopes: []string{"profile"},
		Remember:      true,
	}, nil).Once()
	f.scopes.On("FindByName", mock.Anything, "profile").Return(&models.ScopeDefinition{
		Name: "profile", DisplayName: "Basic profile", Required: true,
	}, nil).Once()
	f.scopes.On("FindByName", mock.Anything, "email").Return(&models.ScopeDefinition{
		Name: "email", DisplayName: "Email address",
	}, nil).Once()

	view, err := f.svc.GetConsentView(context.Background(), userID, client.ClientID, []string{"profile", "email"})

	require.NoError(t, err)
	require.Len(t, view.Scopes, 2)
	assert.True(t, view.Scopes[0].AlreadyGranted)
	assert.True(t, view.Scopes[0].Required)
	assert.False(t, view.Scopes[1].AlreadyGranted)
}

func TestGetConsentView_UnknownScope(t *testing.T) {
	f := newConsentFixture()
	userID := uuid.New()
	client := testClient()

	f.clients.On("FindByClientID", mock.Anything, client.ClientID).Return(client, nil).Once()
	f.consents.On("FindActive", mock.Anything, userID, client.ID).Return(nil, domainErrors.ErrNotFound).Once()
	f.scopes.On("FindByName", mock.Anything, "bogus").Return(nil, domainErrors.ErrScopeNotFound).Once()

	_, err := f.svc.GetConsentView(context.Background(), userID, client.ClientID, []string{"bogus"})

	assert.ErrorIs(t, err, domainErrors.ErrInvalidScope)
}

func TestProcessConsent_UpsertsAndPublishes(t *testing.T) {
	f := newConsentFixture()
	userID := uuid.New()
	client := testClient()

	f.clients.On("FindByClientID", mock.Anything, client.ClientID).Return(client, nil).Once()
	f.scopes.On("FindByName", mock.Anything, "profile").Return(&models.ScopeDefinition{Name: "profile", Required: true}, nil).Once()
	f.scopes.On("FindByName", mock.Anything, "email").Return(&models.ScopeDefinition{Name: "email"}, nil).Once()
	f.scopes.On("FindByNames", mock.Anything, client.Scopes).Return([]*models.ScopeDefinition{
		{Name: "profile", Required: true},
		{Name: "email"},
	}, nil).Once()
	f.consents.On("Upsert", mock.Anything, mock.AnythingOfType("*models.UserConsent")).Return(nil).Once()

	consent, err := f.svc.ProcessConsent(context.Background(), userID, client.ClientID, []string{"profile", "email"}, true)

	require.NoError(t, err)
	assert.Equal(t, client.ID, consent.ClientID)
	assert.True(t, consent.Remember)
	assert.True(t, f.pub.published(models.AuthConsentGrantedV1))
}

func TestProcessConsent_RequiredScopeCannotBeDeclined(t *testing.T) {
	f := newConsentFixture()
	userID := uuid.New()
	client := testClient()

	f.clients.On("FindByClientID", mock.Anything, client.ClientID).Return(client, nil).Once()
	f.scopes.On("FindByName", mock.Anything, "email").Return(&models.ScopeDefinition{Name: "email"}, nil).Once()
	f.scopes.On("FindByNames", mock.Anything, client.Scopes).Return([]*models.ScopeDefinition{
		{Name: "profile", Required: true},
		{Name: "email"},
	}, nil).Once()

	_, err := f.svc.ProcessConsent(context.Background(), userID, client.ClientID, []string{"email"}, true)

	assert.ErrorIs(t, err, domainErrors.ErrConsentRequired)
	f.consents.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestHasValidConsent(t *testing.T) {
	t.Run("remembered consent covering scopes", func(t *testing.T) {
		f := newConsentFixture()
		userID := uuid.New()
		client := testClient()

		f.clients.On("FindByClientID", mock.Anything, client.ClientID).Return(client, nil).Once()
		f.consents.On("FindActive", mock.Anything, userID, client.ID).Return(&models.UserConsent{
			GrantedScopes: []string{"profile", "email"},
			Remember:      true,
		}, nil).Once()

		ok, err := f.svc.HasValidConsent(context.Background(), userID, client.ClientID, []string{"profile"})
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("consent without remember never reused", func(t *testing.T) {
		f := newConsentFixture()
		userID := uuid.New()
		client := testClient()

		f.clients.On("FindByClientID", mock.Anything, client.ClientID).Return(client, nil).Once()
		f.consents.On("FindActive", mock.Anything, userID, client.ID).Return(&models.UserConsent{
			GrantedScopes: []string{"profile"},
			Remember:      false,
		}, nil).Once()

		ok, err := f.svc.HasValidConsent(context.Background(), userID, client.ClientID, []string{"profile"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("uncovered scope", func(t *testing.T) {
		f := newConsentFixture()
		userID := uuid.New()
		client := testClient()

		f.clients.On("FindByClientID", mock.Anything, client.ClientID).Return(client, nil).Once()
		f.consents.On("FindActive", mock.Anything, userID, client.ID).Return(&models.UserConsent{
			GrantedScopes: []string{"profile"},
			Remember:      true,
		}, nil).Once()

		ok, err := f.svc.HasValidConsent(context.Background(), userID, client.ClientID, []string{"profile", "portfolio:read"})
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown client", func(t *testing.T) {
		f := newConsentFixture()

		f.clients.On("FindByClientID", mock.Anything, "ghost").Return(nil, domainErrors.ErrClientNotFound).Once()

		ok, err := f.svc.HasValidConsent(context.Background(), uuid.New(), "ghost", []string{"profile"})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRevokeConsent(t *testing.T) {
	f := newConsentFixture()
	userID := uuid.New()
	client := testClient()

	f.clients.On("FindByClientID", mock.Anything, client.ClientID).Return(client, nil).Once()
	f.consents.On("Revoke", mock.Anything, userID, client.ID).Return(nil).Once()

	err := f.svc.RevokeConsent(context.Background(), userID, client.ClientID)

	require.NoError(t, err)
	assert.True(t, f.pub.published(models.AuthConsentRevokedV1))
}
