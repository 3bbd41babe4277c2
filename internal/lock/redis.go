package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/lucsky/cuid"
)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0
`)

// ErrLockTimeout is returned when the context ends before the lock is acquired.
var ErrLockTimeout = errors.New("timed out acquiring lock")

// RedisLocker holds locks as SET NX keys carrying a random token. The TTL bounds
// how long a crashed holder can block others.
type RedisLocker struct {
	rdb       *redis.Client
	logger    *slog.Logger
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLocker{
		rdb:       rdb,
		logger:    logger.With("component", "redis_lock"),
		prefix:    "profitlens:lock:",
		ttl:       ttl,
		retryWait: 25 * time.Millisecond,
	}
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := cuid.New()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		case <-time.After(l.retryWait):
		}
	}

	return func() { l.release(redisKey, token) }, nil
}

// release deletes the key only while it still holds token. Failures are logged;
// the key then lives until its TTL expires.
func (l *RedisLocker) release(redisKey, token string) {
	// a fresh context so a cancelled caller still unlocks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	deleted, err := releaseScript.Run(ctx, l.rdb, []string{redisKey}, token).Int()
	switch {
	case err != nil:
		l.logger.Error("failed to release lock", "key", redisKey, "ttl", l.ttl, "error", err)
	case deleted == 0:
		l.logger.Warn("lock expired before release", "key", redisKey, "ttl", l.ttl)
	}
}
