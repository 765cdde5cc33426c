package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// SessionCache is a read-through Redis cache in front of the session table.
// Entries carry the session's own TTL so the cache never outlives the row.
type SessionCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewSessionCache creates a new SessionCache.
func NewSessionCache(client *redis.Client, logger *zap.Logger, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, logger: logger, ttl: ttl}
}

func sessionKey(id uuid.UUID) string {
	return "session:" + id.String()
}

// Get returns the cached session or ErrSessionNotFound on a miss.
func (c *SessionCache) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domainErrors.ErrSessionNotFound
		}
		c.logger.Error("Failed to get session from cache", zap.Error(err), zap.String("session_id", id.String()))
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal cached session: %w", err)
	}
	return &session, nil
}

// Set caches the session, capping the TTL at the session's remaining life.
func (c *SessionCache) Set(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := c.ttl
	if remaining := time.Until(session.ExpiresAt); remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	return c.client.Set(ctx, sessionKey(session.ID), data, ttl).Err()
}

// Delete drops the cached session, e.g. after revocation.
func (c *SessionCache) Delete(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, sessionKey(id)).Err()
}
