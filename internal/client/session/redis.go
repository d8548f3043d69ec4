package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix は RedisStorage のキー接頭辞です。
const DefaultRedisPrefix = "shiftboard:session:"

// RedisStorage は共有端末向けにセッションを Redis に保存します。
type RedisStorage struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedisStorage は RedisStorage を返します。ttl が 0 の場合キーは失効しません。
func NewRedisStorage(client redis.Cmdable, prefix string, ttl time.Duration) *RedisStorage {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStorage{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStorage) key(k string) string {
	return s.prefix + k
}

func (s *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session: redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("session: redis del %s: %w", key, err)
	}
	return nil
}
