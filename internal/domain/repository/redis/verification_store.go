package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
)

// VerificationStoreRedis keeps email-verification tokens in Redis with a
// TTL. A token maps to the user it verifies and disappears on first use.
type VerificationStoreRedis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewVerificationStoreRedis creates a new VerificationStoreRedis.
func NewVerificationStoreRedis(client *redis.Client, logger *zap.Logger) *VerificationStoreRedis {
	return &VerificationStoreRedis{client: client, logger: logger}
}

func verificationKey(token string) string {
	return "email_verification:" + token
}

// Put stores the token for the given TTL.
func (s *VerificationStoreRedis) Put(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if err := s.client.Set(ctx, verificationKey(token), userID.String(), ttl).Err(); err != nil {
		s.logger.Error("Failed to store verification token", zap.Error(err))
		return fmt.Errorf("store verification token: %w", err)
	}
	return nil
}

// Take fetches and deletes the token in one round trip, making it
// single-use.
func (s *VerificationStoreRedis) Take(ctx context.Context, token string) (uuid.UUID, error) {
	key := verificationKey(token)

	pipe := s.client.TxPipeline()
	getCmd := pipe.Get(ctx, key)
	pipe.Del(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if err == redis.Nil {
			return uuid.Nil, domainErrors.ErrInvalidToken
		}
		s.logger.Error("Failed to take verification token", zap.Error(err))
		return uuid.Nil, fmt.Errorf("take verification token: %w", err)
	}

	raw, err := getCmd.Result()
	if err != nil {
		if err == redis.Nil {
			return uuid.Nil, domainErrors.ErrInvalidToken
		}
		return uuid.Nil, fmt.Errorf("read verification token: %w", err)
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse verification token owner: %w", err)
	}
	return userID, nil
}
