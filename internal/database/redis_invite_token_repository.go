package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fable-server/internal/interfaces"
	"fable-server/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check
var _ interfaces.InviteTokenRepository = (*redisInviteTokenRepository)(nil)

type redisInviteTokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisInviteTokenRepository creates a Redis-backed InviteTokenRepository.
// Keys carry the invitation TTL so expired tokens vanish from the index
// without a sweeper.
func NewRedisInviteTokenRepository(client *redis.Client, logger *zap.Logger) interfaces.InviteTokenRepository {
	return &redisInviteTokenRepository{
		client: client,
		logger: logger.Named("RedisInviteTokenRepo"),
	}
}

func inviteTokenKey(token string) string {
	return fmt.Sprintf("invite_token:%s", token)
}

func (r *redisInviteTokenRepository) Set(ctx context.Context, token string, invitationID uuid.UUID, ttl time.Duration) error {
	key := inviteTokenKey(token)
	if err := r.client.Set(ctx, key, invitationID.String(), ttl).Err(); err != nil {
		r.logger.Error("Failed to store invite token", zap.String("invitationID", invitationID.String()), zap.Error(err))
		return fmt.Errorf("failed to store invite token: %w", err)
	}
	r.logger.Debug("Invite token stored", zap.String("invitationID", invitationID.String()), zap.Duration("ttl", ttl))
	return nil
}

func (r *redisInviteTokenRepository) Get(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := r.client.Get(ctx, inviteTokenKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, models.ErrNotFound
		}
		r.logger.Error("Failed to look up invite token", zap.Error(err))
		return uuid.Nil, fmt.Errorf("failed to look up invite token: %w", err)
	}
	id, err := uuid.Parse(val)
	if err != nil {
		r.logger.Error("Invite token index holds a non-UUID value", zap.String("value", val), zap.Error(err))
		return uuid.Nil, fmt.Errorf("invite token index corrupted: %w", models.ErrInvariantViolation)
	}
	return id, nil
}

func (r *redisInviteTokenRepository) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, inviteTokenKey(token)).Err(); err != nil {
		r.logger.Error("Failed to delete invite token", zap.Error(err))
		return fmt.Errorf("failed to delete invite token: %w", err)
	}
	return nil
}
