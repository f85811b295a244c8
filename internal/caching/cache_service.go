package caching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CacheService covers the cross-process state the API keeps outside
// Postgres: revoked access-token ids and processed webhook event ids.
type CacheService interface {
	// Access token revocation (logout)
	BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)

	// Webhook de-duplication: MarkEventProcessed returns true exactly
	// once per event id; UnmarkEvent releases the claim so a later
	// delivery of the same id is treated as fresh again.
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	UnmarkEvent(ctx context.Context, eventID string) error

	// Generic string operations
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

type redisCacheService struct {
	client *redis.Client
	logger *zap.Logger
}

func NewRedisCacheService(addr, password string, db int, logger *zap.Logger) CacheService {
	// Accept redis:// and rediss:// prefixed addresses
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "rediss://"), "redis://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("redis ping failed on initialization", zap.String("addr", parsedAddr), zap.Error(err))
	}

	return &redisCacheService{client: client, logger: logger}
}

func (s *redisCacheService) BlacklistToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired, nothing to blacklist
	}
	key := fmt.Sprintf("token_blacklist:%s", tokenID)
	return s.client.Set(ctx, key, "revoked", ttl).Err()
}

func (s *redisCacheService) IsTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	key := fmt.Sprintf("token_blacklist:%s", tokenID)
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkEventProcessed uses SETNX so concurrent deliveries of the same
// provider event id race to a single winner.
func (s *redisCacheService) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, webhookEventKey(eventID), "processed", ttl).Result()
}

func (s *redisCacheService) UnmarkEvent(ctx context.Context, eventID string) error {
	return s.client.Del(ctx, webhookEventKey(eventID)).Err()
}

func webhookEventKey(eventID string) string {
	return fmt.Sprintf("webhook_event:%s", eventID)
}

func (s *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *redisCacheService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
