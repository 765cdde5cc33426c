package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

// ConflictStoreRedis holds pending linking conflicts in Redis with a TTL,
// so abandoned conflicts expire on their own and any instance can resolve a
// token another instance issued.
type ConflictStoreRedis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewConflictStoreRedis creates a new ConflictStoreRedis.
func NewConflictStoreRedis(client *redis.Client, logger *zap.Logger) *ConflictStoreRedis {
	return &ConflictStoreRedis{client: client, logger: logger}
}

func conflictKey(token string) string {
	return "link_conflict:" + token
}

// Put stores the conflict under its token for the given TTL.
func (s *ConflictStoreRedis) Put(ctx context.Context, conflict *models.PendingConflict, ttl time.Duration) error {
	data, err := json.Marshal(conflict)
	if err != nil {
		return fmt.Errorf("marshal pending conflict: %w", err)
	}
	if err := s.client.Set(ctx, conflictKey(conflict.Token), data, ttl).Err(); err != nil {
		s.logger.Error("Failed to store linking conflict", zap.Error(err))
		return fmt.Errorf("store pending conflict: %w", err)
	}
	return nil
}

// Take fetches and deletes the conflict in one round trip. The pipeline
// makes the token single-use: a second Take sees redis.Nil.
func (s *ConflictStoreRedis) Take(ctx context.Context, token string) (*models.PendingConflict, error) {
	key := conflictKey(token)

	pipe := s.client.TxPipeline()
	getCmd := pipe.Get(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if err == redis.Nil {
			return nil, domainErrors.ErrConflictTokenNotFound
		}
		s.logger.Error("Failed to take linking conflict", zap.Error(err))
		return nil, fmt.Errorf("take pending conflict: %w", err)
	}

	data, err := getCmd.Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domainErrors.ErrConflictTokenNotFound
		}
		return nil, fmt.Errorf("read pending conflict: %w", err)
	}

	var conflict models.PendingConflict
	if err := json.Unmarshal(data, &conflict); err != nil {
		return nil, fmt.Errorf("unmarshal pending conflict: %w", err)
	}
	return &conflict, nil
}
