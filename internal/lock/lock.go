package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockUnavailable means at least one requested key is already held.
// Nothing stays locked when this is returned.
var ErrLockUnavailable = errors.New("lock unavailable")

// Lease is proof of ownership for a set of keys. The token guards
// release against deleting a lock that expired and was re-acquired by
// someone else.
type Lease struct {
	keys  []string
	token string
}

type Locker interface {
	// Acquire takes every key or none. Keys already held by another
	// owner fail the whole batch with ErrLockUnavailable.
	Acquire(ctx context.Context, keys []string, ttl time.Duration) (*Lease, error)
	// Release is best-effort; the TTL is the real safety net.
	Release(ctx context.Context, lease *Lease)
}

// SkuKey namespaces a lock key per SKU.
func SkuKey(skuID int64) string {
	return fmt.Sprintf("lock:sku:%d", skuID)
}

// delete only if we still own the key
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, keys []string, ttl time.Duration) (*Lease, error) {
	token := uuid.NewString()

	sorted := make([]string, len(keys))
	copy(sorted, keys)
	sort.Strings(sorted)

	acquired := make([]string, 0, len(sorted))
	for _, key := range sorted {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err == nil && ok {
			acquired = append(acquired, key)
			continue
		}

		// roll back partial acquisitions before reporting failure
		l.Release(ctx, &Lease{keys: acquired, token: token})
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		return nil, ErrLockUnavailable
	}

	return &Lease{keys: sorted, token: token}, nil
}

func (l *RedisLocker) Release(ctx context.Context, lease *Lease) {
	if lease == nil {
		return
	}
	for _, key := range lease.keys {
		// errors swallowed: an unreleased key expires on its own
		_ = releaseScript.Run(ctx, l.client, []string{key}, lease.token).Err()
	}
}
