package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store wraps the redis client with the app's key conventions.
type Store struct {
	rdb *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error { return s.rdb.Close() }

func lockKey(fingerprint string) string { return "imglock:" + fingerprint }

// Acquire implements the fingerprint lock with SET NX PX, which makes the
// check-and-set atomic across processes. It satisfies token.Locker.
func (s *Store) Acquire(ctx context.Context, fingerprint string, ttl time.Duration) (bool, time.Duration, error) {
	ok, err := s.rdb.SetNX(ctx, lockKey(fingerprint), 1, ttl).Result()
	if err != nil {
		return false, 0, err
	}
	if ok {
		return true, 0, nil
	}
	wait, err := s.rdb.PTTL(ctx, lockKey(fingerprint)).Result()
	if err != nil || wait < 0 {
		wait = ttl
	}
	return false, wait, nil
}
