package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"labdesk/internal/config"
	"labdesk/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix   = "labdesk:session:"
	rateLimitKeyPrefix = "labdesk:rate:"
)

var errNilClient = errors.New("redis client is nil")

type RedisStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a client from the redis config section.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisStateRepository(client *redis.Client, ttl time.Duration) *RedisStateRepository {
	return &RedisStateRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisStateRepository) GetSession(ctx context.Context, id string) (*models.SessionInfo, error) {
	if r.client == nil {
		return nil, errNilClient
	}
	val, err := r.client.Get(ctx, sessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session from redis: %w", err)
	}

	var info models.SessionInfo
	if err := json.Unmarshal([]byte(val), &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &info, nil
}

func (r *RedisStateRepository) SaveSession(ctx context.Context, info *models.SessionInfo) error {
	if r.client == nil {
		return errNilClient
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+info.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session in redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) DeleteSession(ctx context.Context, id string) error {
	if r.client == nil {
		return errNilClient
	}
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

func (r *RedisStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNilClient
	}
	redisKey := rateLimitKeyPrefix + key
	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		r.client.Expire(ctx, redisKey, window)
	}
	return count <= int64(limit), nil
}

// Ping checks the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
