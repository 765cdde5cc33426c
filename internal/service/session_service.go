package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/repository"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/events/kafka"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/metrics"
)

// SessionService manages per-device sessions: the per-user cap with LRU
// eviction, lazy expiry, and sliding extension.
type SessionService struct {
	sessionRepo repository.SessionRepository
	cache       repository.SessionCache
	publisher   kafka.Publisher
	logger      *zap.Logger
	cfg         config.SessionConfig
	now         func() time.Time
}

// NewSessionService creates a SessionService. cache may be nil, in which
// case every read goes straight to the repository.
func NewSessionService(
	sessionRepo repository.SessionRepository,
	cache repository.SessionCache,
	publisher kafka.Publisher,
	cfg config.SessionConfig,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		cache:       cache,
		publisher:   publisher,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// findSession reads through the cache when one is configured. Cache errors
// other than a miss are logged and fall back to the repository.
func (s *SessionService) findSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	if s.cache != nil {
		session, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, domainErrors.ErrSessionNotFound) {
			s.logger.Warn("Session cache read failed", zap.Error(err), zap.String("session_id", sessionID.String()))
		}
	}
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.cacheSet(ctx, session)
	return session, nil
}

func (s *SessionService) cacheSet(ctx context.Context, session *models.Session) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, session); err != nil {
		s.logger.Warn("Session cache write failed", zap.Error(err), zap.String("session_id", session.ID.String()))
	}
}

func (s *SessionService) cacheInvalidate(ctx context.Context, sessionID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("Session cache invalidation failed", zap.Error(err), zap.String("session_id", sessionID.String()))
	}
}

// CreateSession creates a session for the user. When the user is at the cap
// the least-recently-accessed active session is deactivated first. The count
// and eviction are not atomic: a concurrent login may transiently exceed the
// cap by one, which self-corrects on the next create.
func (s *SessionService) CreateSession(ctx context.Context, params models.CreateSessionParams) (*models.Session, error) {
	now := s.now()

	count, err := s.sessionRepo.CountActiveByUserID(ctx, params.UserID, now)
	if err != nil {
		s.logger.Error("Failed to count active sessions", zap.Error(err), zap.String("user_id", params.UserID.String()))
		return nil, err
	}
	for count >= s.cfg.MaxPerUser {
		lru, err := s.sessionRepo.FindLeastRecentlyUsed(ctx, params.UserID, now)
		if err != nil {
			if errors.Is(err, domainErrors.ErrSessionNotFound) {
				break
			}
			return nil, err
		}
		if err := s.sessionRepo.Deactivate(ctx, lru.ID); err != nil && !errors.Is(err, domainErrors.ErrSessionNotFound) {
			return nil, err
		}
		s.cacheInvalidate(ctx, lru.ID)
		metrics.SessionsEvictedTotal.Inc()
		s.logger.Info("Evicted least-recently-used session",
			zap.String("user_id", params.UserID.String()),
			zap.String("session_id", lru.ID.String()))
		s.publishSessionEvent(ctx, models.AuthSessionEvictedV1, lru)
		count--
	}

	session := &models.Session{
		ID:             uuid.New(),
		UserID:         params.UserID,
		AuthType:       params.AuthType,
		IsActive:       true,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.cfg.Timeout),
	}
	if params.IPAddress != "" {
		session.IPAddress = &params.IPAddress
	}
	if params.UserAgent != "" {
		session.UserAgent = &params.UserAgent
	}
	if params.DeviceLabel != "" {
		session.DeviceLabel = &params.DeviceLabel
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		s.logger.Error("Failed to create session", zap.Error(err), zap.String("user_id", params.UserID.String()))
		return nil, err
	}
	s.cacheSet(ctx, session)
	s.publishSessionEvent(ctx, models.AuthSessionCreatedV1, session)
	return session, nil
}

// ValidateSession reports whether the session is usable. Expired sessions
// are deactivated as a side effect (lazy expiry). On success the last
// activity is refreshed and, when the remaining TTL has fallen under the
// sliding threshold, the expiry is pushed back to the full window.
func (s *SessionService) ValidateSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	session, err := s.findSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	if !session.IsActive {
		return false, nil
	}

	now := s.now()
	if session.Expired(now) {
		session.IsActive = false
		if err := s.sessionRepo.Update(ctx, session); err != nil {
			s.logger.Error("Failed to deactivate expired session", zap.Error(err), zap.String("session_id", sessionID.String()))
		}
		s.cacheInvalidate(ctx, sessionID)
		return false, nil
	}

	session.LastActivityAt = now
	if session.ExpiresAt.Sub(now) < s.cfg.SlidingThreshold {
		session.ExpiresAt = now.Add(s.cfg.Timeout)
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		s.logger.Error("Failed to refresh session activity", zap.Error(err), zap.String("session_id", sessionID.String()))
		return false, err
	}
	s.cacheSet(ctx, session)
	return true, nil
}

// GetSession returns the session by id.
func (s *SessionService) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return s.findSession(ctx, sessionID)
}

// ListForUser returns the user's active, non-expired sessions, most
// recently used first.
func (s *SessionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	return s.sessionRepo.ListActiveByUserID(ctx, userID, s.now())
}

// RevokeSession deactivates a single session.
func (s *SessionService) RevokeSession(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.sessionRepo.Deactivate(ctx, sessionID); err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	s.cacheInvalidate(ctx, sessionID)
	s.publishSessionEvent(ctx, models.AuthSessionRevokedV1, session)
	return true, nil
}

// RevokeAllForUser deactivates every active session of the user, sparing
// except when non-nil. Returns the number revoked.
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID uuid.UUID, except *uuid.UUID) (int64, error) {
	var active []*models.Session
	if s.cache != nil {
		// Snapshot before the bulk deactivate so the cache entries can be
		// dropped afterwards.
		active, _ = s.sessionRepo.ListActiveByUserID(ctx, userID, s.now())
	}
	count, err := s.sessionRepo.DeactivateAllByUserID(ctx, userID, except)
	if err != nil {
		s.logger.Error("Failed to revoke user sessions", zap.Error(err), zap.String("user_id", userID.String()))
		return 0, err
	}
	for _, session := range active {
		if except != nil && session.ID == *except {
			continue
		}
		s.cacheInvalidate(ctx, session.ID)
	}
	return count, nil
}

// ExtendSession pushes the session's expiry out by the given duration, or
// by the full session timeout when duration is zero.
func (s *SessionService) ExtendSession(ctx context.Context, sessionID uuid.UUID, duration time.Duration) (bool, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	now := s.now()
	if !session.IsActive || session.Expired(now) {
		return false, nil
	}
	if duration <= 0 {
		duration = s.cfg.Timeout
	}
	session.ExpiresAt = now.Add(duration)
	session.LastActivityAt = now
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return false, err
	}
	s.cacheSet(ctx, session)
	return true, nil
}

// CleanupExpired marks every expired-but-active session inactive. Returns
// the number swept.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	count, err := s.sessionRepo.DeactivateExpired(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to sweep expired sessions", zap.Error(err))
		return 0, err
	}
	if count > 0 {
		metrics.SessionsSweptTotal.Add(float64(count))
		s.logger.Info("Expired sessions swept", zap.Int64("count", count))
	}
	return count, nil
}

// RunCleanupLoop sweeps expired sessions on the configured interval until
// the context is cancelled.
func (s *SessionService) RunCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupExpired(ctx); err != nil {
				s.logger.Error("Session cleanup sweep failed", zap.Error(err))
			}
		}
	}
}

func (s *SessionService) publishSessionEvent(ctx context.Context, eventType string, session *models.Session) {
	payload := models.SessionEventPayload{
		SessionID:  session.ID.String(),
		UserID:     session.UserID.String(),
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, eventType, session.UserID.String(), payload); err != nil {
		s.logger.Error("Failed to publish session event", zap.String("event_type", eventType), zap.Error(err))
	}
}
