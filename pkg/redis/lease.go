package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lease provides a short-lived mutual-exclusion token keyed by name.
// The options pipeline takes a per-underlying lease before a run so
// two schedulers do not walk the upstream pagination at the same time.
// Correctness does not depend on it: writes converge on the upsert key
// either way, the lease only avoids duplicate upstream work.
type Lease struct {
	client *Client
	prefix string
}

// NewLease creates a new lease helper.
func NewLease(client *Client, prefix string) *Lease {
	return &Lease{
		client: client,
		prefix: prefix,
	}
}

// Acquire tries to take the named lease for ttl. Returns a release
// function and whether the lease was taken. With Redis disabled the
// lease is always granted.
func (l *Lease) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	if !l.client.Enabled() {
		return func() {}, true, nil
	}

	key := fmt.Sprintf("%s:lease:%s", l.prefix, name)
	token := fmt.Sprintf("%d", time.Now().UnixNano())

	ok, err := l.client.Redis().SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lease acquire failed: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// Only delete the lease if we still own it
		script := redis.NewScript(`
			if redis.call('GET', KEYS[1]) == ARGV[1] then
				return redis.call('DEL', KEYS[1])
			end
			return 0
		`)
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = script.Run(releaseCtx, l.client.Redis(), []string{key}, token).Err()
	}

	return release, true, nil
}
