// README: Redis-backed Cache with a bounded timeout on every operation.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultOpTimeout = 200 * time.Millisecond

// KEYS: value key, fence key. ARGV: value, version, ttl ms.
var setVersionedScript = redis.NewScript(`
local fence = tonumber(redis.call('GET', KEYS[2]) or '-1')
if tonumber(ARGV[2]) < fence then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

// KEYS: value key, fence key. ARGV: version, ttl ms.
var fenceScript = redis.NewScript(`
local fence = tonumber(redis.call('GET', KEYS[2]) or '-1')
if tonumber(ARGV[1]) > fence then
  redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
end
redis.call('DEL', KEYS[1])
return 1
`)

type Redis struct {
	client  redis.UniversalClient
	timeout time.Duration
}

func NewRedis(client redis.UniversalClient, timeout time.Duration) *Redis {
	if timeout <= 0 {
		timeout = DefaultOpTimeout
	}
	return &Redis{client: client, timeout: timeout}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *Redis) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.client.Del(ctx, keys...).Err()
}

func (r *Redis) SetVersioned(ctx context.Context, key, fenceKey string, value []byte, version int, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	n, err := setVersionedScript.Run(ctx, r.client, []string{key, fenceKey}, value, version, ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *Redis) Fence(ctx context.Context, key, fenceKey string, version int, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return fenceScript.Run(ctx, r.client, []string{key, fenceKey}, version, ttl.Milliseconds()).Err()
}
