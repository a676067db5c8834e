package lock

import (
	"context"
	"errors"
	"time"

	"wastetrack/backend/internal/apperr"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	keyPrefix    = "complaint-lock:"
	pollInterval = 25 * time.Millisecond
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a lease-based lock shared by every API instance. TTL bounds
// how long a crashed holder can block a key; Wait bounds how long a caller
// polls before giving up with a Conflict.
type RedisLocker struct {
	Redis *redis.Client
	TTL   time.Duration
	Wait  time.Duration
}

func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{Redis: rdb, TTL: ttl, Wait: wait}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.New().String()
	redisKey := keyPrefix + key

	waitCtx, cancel := context.WithTimeout(ctx, l.Wait)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.Redis.SetNX(waitCtx, redisKey, token, l.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Internal("acquire complaint lock", err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, apperr.Conflict("complaint %s is being modified, retry later", key)
		}
	}

	return func() {
		// release must survive a cancelled request context
		if err := releaseScript.Run(context.Background(), l.Redis, []string{redisKey}, token).Err(); err != nil {
			log.Error().Err(err).Str("key", redisKey).Msg("failed to release complaint lock")
		}
	}, nil
}
