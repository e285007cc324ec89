package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const (
	responseKeyPrefix = "hrms:idempotency:response:"
	lockKeyPrefix     = "hrms:idempotency:lock:"
)

// RedisStore は Redis に応答を保存し、処理中フラグを redislock で管理する Store です。
type RedisStore struct {
	rdb    redis.UniversalClient
	locker *redislock.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore は RedisStore を生成します。
func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb, locker: redislock.New(rdb)}
}

// Get は保存済みの応答を返します。
func (s *RedisStore) Get(ctx context.Context, key string) (*Response, bool, error) {
	raw, err := s.rdb.Get(ctx, responseKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("idempotency: get %s: %w", key, err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, fmt.Errorf("idempotency: decode %s: %w", key, err)
	}
	return &resp, true, nil
}

// Save は応答を ttl の間保存します。
func (s *RedisStore) Save(ctx context.Context, key string, resp *Response, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("idempotency: encode %s: %w", key, err)
	}
	if err := s.rdb.Set(ctx, responseKeyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: set %s: %w", key, err)
	}
	return nil
}

// Acquire は分散ロックを取得します。他のリクエストが保持中であれば ErrInFlight を返します。
func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	lock, err := s.locker.Obtain(ctx, lockKeyPrefix+key, ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrInFlight
		}
		return nil, fmt.Errorf("idempotency: obtain lock %s: %w", key, err)
	}

	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return fmt.Errorf("idempotency: release lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// NewRedisClient は設定値から Redis クライアントを生成し、疎通を確認します。
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("idempotency: ping redis %s: %w", addr, err)
	}
	return rdb, nil
}
