package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// casScript swaps the stored window only when the current value matches
// the expected one (empty expected means the key must be absent). The key
// expires shortly after the window resets so Redis reclaims it on its own.
var casScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if (cur == false and ARGV[1] == '') or cur == ARGV[1] then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
  return 1
end
return 0
`)

// RedisStore keeps rate-limit windows in Redis so multiple instances
// share the same admission state.
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ctx: context.Background()}
}

func (s *RedisStore) Get(key string) (Window, bool, error) {
	val, err := s.client.Get(s.ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return Window{}, false, nil
	}
	if err != nil {
		return Window{}, false, err
	}
	w, err := decodeWindow(val)
	if err != nil {
		return Window{}, false, err
	}
	return w, true, nil
}

func (s *RedisStore) CompareAndSwap(key string, old, new Window) (bool, error) {
	oldVal := ""
	if old != (Window{}) {
		oldVal = encodeWindow(old)
	}
	ttl := time.Until(new.ResetAt) + time.Minute
	if ttl < time.Second {
		ttl = time.Second
	}
	res, err := casScript.Run(s.ctx, s.client,
		[]string{redisKeyPrefix + key},
		oldVal, encodeWindow(new), ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (s *RedisStore) Delete(key string) error {
	return s.client.Del(s.ctx, redisKeyPrefix+key).Err()
}

func encodeWindow(w Window) string {
	return fmt.Sprintf("%d:%d", w.Count, w.ResetAt.UnixMilli())
}

func decodeWindow(val string) (Window, error) {
	parts := strings.SplitN(val, ":", 2)
	if len(parts) != 2 {
		return Window{}, fmt.Errorf("malformed window value %q", val)
	}
	count, err := strconv.Atoi(parts[0])
	if err != nil {
		return Window{}, err
	}
	resetMs, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Window{}, err
	}
	return Window{Count: count, ResetAt: time.UnixMilli(resetMs)}, nil
}
