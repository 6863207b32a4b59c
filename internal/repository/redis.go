package repository

import (
	"context"
	"fmt"
	"time"

	"hotelfront/internal/config"
	"hotelfront/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	credentialKeyPrefix = "credential:"
	rateLimitKeyPrefix  = "rate_limit:"

	fieldToken = "token"
	fieldRole  = "role"
)

type RedisCredentialStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCredentialStore(client *redis.Client, ttl time.Duration) *RedisCredentialStore {
	return &RedisCredentialStore{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisCredentialStore) Load(ctx context.Context, sessionID string) (models.Credential, error) {
	if r.client == nil {
		return models.Credential{}, fmt.Errorf("redis client is nil")
	}
	vals, err := r.client.HGetAll(ctx, credentialKeyPrefix+sessionID).Result()
	if err != nil {
		return models.Credential{}, fmt.Errorf("failed to load credential from redis: %w", err)
	}
	if vals[fieldToken] == "" {
		return models.Credential{}, nil
	}
	return models.Credential{
		Token: vals[fieldToken],
		Role:  models.Role(vals[fieldRole]),
	}, nil
}

func (r *RedisCredentialStore) Save(ctx context.Context, sessionID string, cred models.Credential) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := credentialKeyPrefix + sessionID
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fieldToken, cred.Token, fieldRole, string(cred.Role))
		if r.ttl > 0 {
			pipe.Expire(ctx, key, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save credential in redis: %w", err)
	}
	return nil
}

func (r *RedisCredentialStore) Clear(ctx context.Context, sessionID string) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, credentialKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete credential from redis: %w", err)
	}
	return nil
}

func (r *RedisCredentialStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rk := rateLimitKeyPrefix + key
	count, err := r.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, rk, window)
	}

	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
