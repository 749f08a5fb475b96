package limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript checks and increments every counter key atomically.
// KEYS    = counter keys sharing one rule
// ARGV[1] = request limit
// ARGV[2] = window in seconds
// ARGV[3] = current timestamp (unix seconds)
// Returns: [allowed (1/0), denied key index (1-based, 0 if allowed),
//
//	remaining, retry_after_seconds]
const fixedWindowScript = `
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

for i, key in ipairs(KEYS) do
	local ws = tonumber(redis.call("HGET", key, "ws"))
	if not ws or now - ws >= window then
		redis.call("HMSET", key, "ws", now, "count", 0)
		redis.call("EXPIRE", key, window)
		ws = now
	end
	local count = tonumber(redis.call("HGET", key, "count"))
	if count + 1 > limit then
		return {0, i, limit - count, ws + window - now}
	end
end

local remaining = limit
for i, key in ipairs(KEYS) do
	local count = redis.call("HINCRBY", key, "count", 1)
	if limit - count < remaining then
		remaining = limit - count
	end
end
return {1, 0, remaining, 0}
`

// RedisStore keeps fixed-window counters in redis so limits hold across
// instances. The Lua script gives the same all-or-nothing increment
// semantics as MemoryStore.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Allow(ctx context.Context, keys []string, limit int, window time.Duration) (Decision, error) {
	now := time.Now().Unix()

	result, err := s.client.Eval(ctx, fixedWindowScript, keys, limit, int(window.Seconds()), now).Result()
	if err != nil {
		return Decision{}, err
	}

	res, ok := result.([]interface{})
	if !ok || len(res) != 4 {
		return Decision{}, fmt.Errorf("unexpected limiter script result %v", result)
	}
	allowed := res[0].(int64) == 1
	deniedIdx := res[1].(int64)
	remaining := int(res[2].(int64))
	retryAfter := time.Duration(res[3].(int64)) * time.Second

	dec := Decision{Allowed: allowed, Remaining: remaining, RetryAfter: retryAfter}
	if !allowed && deniedIdx >= 1 && int(deniedIdx) <= len(keys) {
		dec.DeniedKey = keys[deniedIdx-1]
	}
	return dec, nil
}
