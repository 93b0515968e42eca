package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1]: counter key
// ARGV[1]: limit
// ARGV[2]: ttl in seconds
//
// Returns 1 when the request was counted, 0 when the bucket is full.
// The check and the increment run as one script so concurrent instances
// cannot both take the last slot.
var acquireScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
    return 0
end
local n = redis.call('INCR', KEYS[1])
if n == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return 1
`)

// RedisCounter is a Counter shared by every instance through Redis
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Acquire(ctx context.Context, key string, limit int64, ttl time.Duration) (bool, error) {
	result, err := acquireScript.Run(ctx, c.client, []string{key}, limit, int64(ttl.Seconds())).Int()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
