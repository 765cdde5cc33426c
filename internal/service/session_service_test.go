package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

func newSessionServiceForTest(repo *mockSessionRepo, pub *recordingPublisher, cfg config.SessionConfig) *SessionService {
	svc := NewSessionService(repo, nil, pub, cfg, zap.NewNop())
	return svc
}

func sessionTestConfig() config.SessionConfig {
	return config.SessionConfig{
		MaxPerUser:       3,
		Timeout:          30 * 24 * time.Hour,
		SlidingThreshold: 15 * time.Minute,
		CleanupInterval:  time.Hour,
	}
}

func TestCreateSession_UnderCap(t *testing.T) {
	repo := &mockSessionRepo{}
	pub := &recordingPublisher{}
	svc := newSessionServiceForTest(repo, pub, sessionTestConfig())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	userID := uuid.New()
	repo.On("CountActiveByUserID", mock.Anything, userID, now).Return(1, nil).Once()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Session")).Return(nil).Once()

	session, err := svc.CreateSession(context.Background(), models.CreateSessionParams{
		UserID:      userID,
		IPAddress:   "203.0.113.7",
		UserAgent:   "Mozilla/5.0",
		DeviceLabel: "Firefox on Linux",
		AuthType:    models.AuthTypeCookie,
	})

	require.NoError(t, err)
	assert.True(t, session.IsActive)
	assert.Equal(t, now.Add(svc.cfg.Timeout), session.ExpiresAt)
	assert.Equal(t, now, session.LastActivityAt)
	require.NotNil(t, session.DeviceLabel)
	assert.Equal(t, "Firefox on Linux", *session.DeviceLabel)
	assert.True(t, pub.published(models.AuthSessionCreatedV1))
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "FindLeastRecentlyUsed", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSession_EvictsLeastRecentlyUsedAtCap(t *testing.T) {
	repo := &mockSessionRepo{}
	pub := &recordingPublisher{}
	svc := newSessionServiceForTest(repo, pub, sessionTestConfig())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	userID := uuid.New()
	lru := &models.Session{ID: uuid.New(), UserID: userID, IsActive: true}

	repo.On("CountActiveByUserID", mock.Anything, userID, now).Return(3, nil).Once()
	repo.On("FindLeastRecentlyUsed", mock.Anything, userID, now).Return(lru, nil).Once()
	repo.On("Deactivate", mock.Anything, lru.ID).Return(nil).Once()
	repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Session")).Return(nil).Once()

	_, err := svc.CreateSession(context.Background(), models.CreateSessionParams{
		UserID:   userID,
		AuthType: models.AuthTypeToken,
	})

	require.NoError(t, err)
	assert.True(t, pub.published(models.AuthSessionEvictedV1))
	repo.AssertExpectations(t)
}

func TestValidateSession_SlidingExtension(t *testing.T) {
	repo := &mockSessionRepo{}
	pub := &recordingPublisher{}
	svc := newSessionServiceForTest(repo, pub, sessionTestConfig())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// Five minutes to expiry, inside the fifteen-minute sliding threshold.
	session := &models.Session{
		ID:        uuid.New(),
		IsActive:  true,
		ExpiresAt: now.Add(5 * time.Minute),
	}
	repo.On("FindByID", mock.Anything, session.ID).Return(session, nil).Once()

	var updated *models.Session
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Session")).Run(func(args mock.Arguments) {
		updated = args.Get(1).(*models.Session)
	}).Return(nil).Once()

	valid, err := svc.ValidateSession(context.Background(), session.ID)

	require.NoError(t, err)
	assert.True(t, valid)
	require.NotNil(t, updated)
	assert.Equal(t, now.Add(svc.cfg.Timeout), updated.ExpiresAt)
	assert.Equal(t, now, updated.LastActivityAt)
}

func TestValidateSession_NoExtensionOutsideThreshold(t *testing.T) {
	repo := &mockSessionRepo{}
	pub := &recordingPublisher{}
	svc := newSessionServiceForTest(repo, pub, sessionTestConfig())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	expiresAt := now.Add(20 * time.Hour)
	session := &models.Session{ID: uuid.New(), IsActive: true, ExpiresAt: expiresAt}
	repo.On("FindByID", mock.Anything, session.ID).Return(session, nil).Once()

	var updated *models.Session
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Session")).Run(func(args mock.Arguments) {
		updated = args.Get(1).(*models.Session)
	}).Return(nil).Once()

	valid, err := svc.ValidateSession(context.Background(), session.ID)

	require.NoError(t, err)
	assert.True(t, valid)
	require.NotNil(t, updated)
	assert.Equal(t, expiresAt, updated.ExpiresAt)
	assert.Equal(t, now, updated.LastActivityAt)
}

func TestValidateSession_LazyExpiry(t *testing.T) {
	repo := &mockSessionRepo{}
	pub := &recordingPublisher{}
	svc := newSessionServiceForTest(repo, pub, sessionTestConfig())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	session := &models.Session{ID: uuid.New(), IsActive: true, ExpiresAt: now.Add(-time.Minute)}
	repo.On("FindByID", mock.Anything, session.ID).Return(session, nil).Once()

	var updated *models.Session
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Session")).Run(func(args mock.Arguments) {
		updated = args.Get(1).(*models.Session)
	}).Return(nil).Once()

	valid, err := svc.ValidateSession(context.Background(), session.ID)

	require.NoError(t, err)
	assert.False(t, valid)
	require.NotNil(t, updated)
	assert.False(t, updated.IsActive)
}

func TestValidateSession_UnknownSession(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionServiceForTest(repo, &recordingPublisher{}, sessionTestConfig())

	id := uuid.New()
	repo.On("FindByID", mock.Anything, id).Return(nil, domainErrors.ErrSessionNotFound).Once()

	valid, err := svc.ValidateSession(context.Background(), id)

	require.NoError(t, err)
	assert.False(t, valid)
}

func TestExtendSession_DefaultsToFullTimeout(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionServiceForTest(repo, &recordingPublisher{}, sessionTestConfig())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	session := &models.Session{ID: uuid.New(), IsActive: true, ExpiresAt: now.Add(time.Hour)}
	repo.On("FindByID", mock.Anything, session.ID).Return(session, nil).Once()

	var updated *models.Session
	repo.On("Update", mock.Anything, mock.AnythingOfType("*models.Session")).Run(func(args mock.Arguments) {
		updated = args.Get(1).(*models.Session)
	}).Return(nil).Once()

	extended, err := svc.ExtendSession(context.Background(), session.ID, 0)

	require.NoError(t, err)
	assert.True(t, extended)
	require.NotNil(t, updated)
	assert.Equal(t, now.Add(svc.cfg.Timeout), updated.ExpiresAt)
}

func TestExtendSession_RefusesExpired(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionServiceForTest(repo, &recordingPublisher{}, sessionTestConfig())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	session := &models.Session{ID: uuid.New(), IsActive: true, ExpiresAt: now.Add(-time.Second)}
	repo.On("FindByID", mock.Anything, session.ID).Return(session, nil).Once()

	extended, err := svc.ExtendSession(context.Background(), session.ID, time.Hour)

	require.NoError(t, err)
	assert.False(t, extended)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestGetSession_ReadsThroughCache(t *testing.T) {
	t.Run("hit skips the repository", func(t *testing.T) {
		repo := &mockSessionRepo{}
		cache := &mockSessionCache{}
		svc := NewSessionService(repo, cache, &recordingPublisher{}, sessionTestConfig(), zap.NewNop())

		session := &models.Session{ID: uuid.New(), IsActive: true}
		cache.On("Get", mock.Anything, session.ID).Return(session, nil).Once()

		got, err := svc.GetSession(context.Background(), session.ID)

		require.NoError(t, err)
		assert.Equal(t, session, got)
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("miss falls back and primes the cache", func(t *testing.T) {
		repo := &mockSessionRepo{}
		cache := &mockSessionCache{}
		svc := NewSessionService(repo, cache, &recordingPublisher{}, sessionTestConfig(), zap.NewNop())

		session := &models.Session{ID: uuid.New(), IsActive: true}
		cache.On("Get", mock.Anything, session.ID).Return(nil, domainErrors.ErrSessionNotFound).Once()
		repo.On("FindByID", mock.Anything, session.ID).Return(session, nil).Once()
		cache.On("Set", mock.Anything, session).Return(nil).Once()

		got, err := svc.GetSession(context.Background(), session.ID)

		require.NoError(t, err)
		assert.Equal(t, session, got)
		cache.AssertExpectations(t)
	})
}

func TestRevokeSession_InvalidatesCache(t *testing.T) {
	repo := &mockSessionRepo{}
	cache := &mockSessionCache{}
	pub := &recordingPublisher{}
	svc := NewSessionService(repo, cache, pub, sessionTestConfig(), zap.NewNop())

	session := &models.Session{ID: uuid.New(), UserID: uuid.New(), IsActive: true}
	repo.On("FindByID", mock.Anything, session.ID).Return(session, nil).Once()
	repo.On("Deactivate", mock.Anything, session.ID).Return(nil).Once()
	cache.On("Delete", mock.Anything, session.ID).Return(nil).Once()

	revoked, err := svc.RevokeSession(context.Background(), session.ID)

	require.NoError(t, err)
	assert.True(t, revoked)
	cache.AssertExpectations(t)
	assert.True(t, pub.published(models.AuthSessionRevokedV1))
}

func TestRevokeAllForUser_SparesException(t *testing.T) {
	repo := &mockSessionRepo{}
	svc := newSessionServiceForTest(repo, &recordingPublisher{}, sessionTestConfig())

	userID := uuid.New()
	current := uuid.New()
	repo.On("DeactivateAllByUserID", mock.Anything, userID, &current).Return(int64(2), nil).Once()

	count, err := svc.RevokeAllForUser(context.Background(), userID, &current)

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	repo.AssertExpectations(t)
}
