package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRefreshRevoked = errors.New("refresh token revoked")

// RefreshStore は有効なリフレッシュトークンの jti を保持する。
type RefreshStore interface {
	Save(ctx context.Context, jti, accountID string, ttl time.Duration) error
	// Consume は jti を取り出して削除する。無ければ ErrRefreshRevoked。
	Consume(ctx context.Context, jti string) (string, error)
	Revoke(ctx context.Context, jti string) error
}

type RedisRefreshStore struct {
	rdb    redis.Cmdable
	prefix string
}

func NewRedisRefreshStore(rdb redis.Cmdable) *RedisRefreshStore {
	return &RedisRefreshStore{rdb: rdb, prefix: "scribe:refresh:"}
}

func (s *RedisRefreshStore) Save(ctx context.Context, jti, accountID string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.prefix+jti, accountID, ttl).Err()
}

func (s *RedisRefreshStore) Consume(ctx context.Context, jti string) (string, error) {
	id, err := s.rdb.GetDel(ctx, s.prefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrRefreshRevoked
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisRefreshStore) Revoke(ctx context.Context, jti string) error {
	return s.rdb.Del(ctx, s.prefix+jti).Err()
}
