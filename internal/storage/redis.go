package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisStore backs the key-value storage with Redis for deployments where
// several console replicas must share one session, the moral equivalent of
// two browser tabs over the same localStorage.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedisStore(client *redis.Client, prefix string, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		s.logger.Error("redis get failed", zap.String("key", key), zap.Error(err))
		return "", false, err
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		s.logger.Error("redis set failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		s.logger.Error("redis del failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStore) SetPair(ctx context.Context, key1, value1, key2, value2 string) error {
	pipe := s.client.TxPipeline()
	pairOp(ctx, pipe, s.key(key1), value1)
	pairOp(ctx, pipe, s.key(key2), value2)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("redis pair write failed", zap.Error(err))
		return err
	}
	return nil
}

func (s *RedisStore) DeletePair(ctx context.Context, key1, key2 string) error {
	if err := s.client.Del(ctx, s.key(key1), s.key(key2)).Err(); err != nil {
		s.logger.Error("redis pair delete failed", zap.Error(err))
		return err
	}
	return nil
}

func pairOp(ctx context.Context, pipe redis.Pipeliner, key, value string) {
	if value == "" {
		pipe.Del(ctx, key)
		return
	}
	pipe.Set(ctx, key, value, 0)
}
